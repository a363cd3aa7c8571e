package app_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-auth-gate/cmd/authgate/app"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	out := new(bytes.Buffer)
	cmd := app.NewRootCmd()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommands(t *testing.T) {
	t.Setenv("AUTHGATE_SIGNING_KEY", testKey)

	out, err := execute(t, "token", "issue", "alice", "--ttl", "10m")
	require.NoError(t, err)
	token := strings.TrimSpace(out)
	require.Len(t, strings.Split(token, "."), 3)

	out, err = execute(t, "token", "inspect", token)
	require.NoError(t, err)

	var claims map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &claims))
	assert.Equal(t, "alice", claims["sub"])
	assert.NotEmpty(t, claims["exp"])
	assert.NotEmpty(t, claims["iat"])

	t.Run("other key rejects", func(t *testing.T) {
		t.Setenv("AUTHGATE_SIGNING_KEY", strings.Repeat("z", 32))
		_, err := execute(t, "token", "inspect", token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "INVALID_SIGNATURE")
	})

	t.Run("missing key", func(t *testing.T) {
		t.Setenv("AUTHGATE_SIGNING_KEY", "")
		_, err := execute(t, "token", "issue", "alice")
		assert.Error(t, err)
	})
}

func TestUserCommands(t *testing.T) {
	t.Setenv("AUTHGATE_SIGNING_KEY", testKey)
	t.Setenv("AUTHGATE_DATABASE_DSN", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))

	// every command opens and closes its own handle, so an in-memory
	// database only lives for a single command
	_, err := execute(t, "user", "create", "root", "root@example.com", "--secret", "rootroot", "--role", "ADMIN")
	require.NoError(t, err)

	_, err = execute(t, "user", "create", "bad", "bad@example.com", "--secret", "x", "--role", "OWNER")
	assert.Error(t, err)

	_, err = execute(t, "user", "disable", "ghost")
	assert.Error(t, err)
}

func TestUserCreate_Output(t *testing.T) {
	t.Setenv("AUTHGATE_SIGNING_KEY", testKey)
	t.Setenv("AUTHGATE_DATABASE_DSN", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))

	out, err := execute(t, "user", "create", "root", "root@example.com", "--secret", "rootroot", "--role", "ADMIN")
	require.NoError(t, err)

	var identity map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &identity))
	assert.Equal(t, "root", identity["username"])
	assert.Equal(t, "ADMIN", identity["role"])
	assert.Equal(t, "root", identity["displayName"])
}
