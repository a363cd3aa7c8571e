package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-auth-gate"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in    string
		want  auth.Role
		valid bool
	}{
		{"USER", auth.RoleUser, true},
		{"ADMIN", auth.RoleAdmin, true},
		{"admin", auth.Role("admin"), false},
		{"", auth.Role(""), false},
		{"ROOT", auth.Role("ROOT"), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := auth.ParseRole(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, ok)
		})
	}

	assert.ElementsMatch(t, []auth.Role{auth.RoleUser, auth.RoleAdmin}, auth.GetAllRoles())
}

func TestGrantedRoles(t *testing.T) {
	assert.Equal(t, []string{"ROLE_USER"}, auth.GrantedRoles(auth.RoleUser))
	assert.Equal(t, []string{"ROLE_ADMIN"}, auth.GrantedRoles(auth.RoleAdmin))
	assert.Nil(t, auth.GrantedRoles(auth.Role("GUEST")))
}

func TestHasAnyRole(t *testing.T) {
	granted := auth.GrantedRoles(auth.RoleAdmin)

	assert.True(t, auth.HasAnyRole(granted, auth.RoleAdmin))
	assert.True(t, auth.HasAnyRole(granted, auth.Role("ROLE_ADMIN")))
	assert.True(t, auth.HasAnyRole(granted, auth.RoleUser, auth.RoleAdmin))
	assert.False(t, auth.HasAnyRole(granted, auth.RoleUser))
	assert.False(t, auth.HasAnyRole(nil, auth.RoleUser))
	assert.False(t, auth.HasAnyRole(granted))
}
