package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenTTL() time.Duration
	GetDebugHeaders() bool
}

// CredentialStore is the user record store the core reads identities from.
// Lookups return ErrIdentityNotFound when no record matches.
type CredentialStore interface {
	// FindByIdentifier resolves either a username or an email.
	FindByIdentifier(ctx context.Context, usernameOrEmail string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Create persists the record and assigns ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, user *User) (*User, error)
}

// Authenticator verifies credentials and registers accounts
type Authenticator interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Register(ctx context.Context, signup Signup) (*Identity, error)
	UsernameAvailable(ctx context.Context, username string) (bool, error)
	EmailAvailable(ctx context.Context, email string) (bool, error)
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// Credentials is the login payload handed to Auther.Login
type Credentials struct {
	Identifier string
	Secret     string
}

// Signup is the registration payload handed to Auther.Register
type Signup struct {
	Username    string
	Email       string
	Secret      string
	DisplayName string
}

// LoginResult is returned on a successful login
type LoginResult struct {
	Token     string
	TokenType string
	Identity  Identity
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	d.print("ERR", msg, args)
}

func (d defLogger) Warn(msg string, args ...any) {
	d.print("WRN", msg, args)
}

func (d defLogger) Info(msg string, args ...any) {
	d.print("INF", msg, args)
}

func (d defLogger) Debug(msg string, args ...any) {
	d.print("DBG", msg, args)
}

func (d defLogger) print(level, msg string, args []any) {
	var b strings.Builder
	b.WriteString("[" + level + "] AUTH " + msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	fmt.Println(b.String())
}
