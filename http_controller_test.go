package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-gate"
	"github.com/goliatone/go-auth-gate/middleware/jwtware"
	"github.com/goliatone/go-auth-gate/middleware/routepolicy"
)

type controllerFixture struct {
	app    *fiber.App
	repo   *auth.UsersRepository
	tokens *auth.TokenService
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()

	repo := auth.NewUsersRepository(newTestDB(t))
	auther, _ := newTestAuther(t, repo)

	return &controllerFixture{
		app:    newControllerApp(t, auther, repo, auther.TokenService()),
		repo:   repo,
		tokens: auther.TokenService(),
	}
}

func newControllerApp(t *testing.T, a auth.Authenticator, identities jwtware.IdentityFinder, tokens jwtware.TokenParser) *fiber.App {
	t.Helper()

	var app *fiber.App
	srv := router.NewFiberAdapter(func(*fiber.App) *fiber.App {
		app = fiber.New(fiber.Config{
			DisableStartupMessage: true,
			CaseSensitive:         true,
			StrictRouting:         true,
			ErrorHandler:          auth.ErrorHandler(auth.NopLogger()),
		})
		return app
	})
	require.NotNil(t, app)

	r := srv.Router()
	r.Use(jwtware.New(jwtware.Config{
		Tokens:     tokens,
		Identities: identities,
		Logger:     auth.NopLogger(),
	}))
	r.Use(routepolicy.MustNew(routepolicy.DefaultRules()...).WithLogger(auth.NopLogger()).Enforce())

	auth.RegisterAuthRoutes(r.Group("/api"),
		auth.WithAuthenticator(a),
		auth.WithRoleGuard(routepolicy.RequireRole),
		auth.WithControllerLogger(auth.NopLogger()),
	)

	return app
}

func (f *controllerFixture) do(t *testing.T, method, path, body, token string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func (f *controllerFixture) signup(t *testing.T, username string) {
	t.Helper()
	resp, _ := f.do(t, http.MethodPost, "/api/auth/signup", `{
		"username": "`+username+`",
		"email": "`+username+`@example.com",
		"secret": "s3cret!",
		"displayName": "Test `+username+`"
	}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func (f *controllerFixture) login(t *testing.T, identifier string) string {
	t.Helper()
	resp, raw := f.do(t, http.MethodPost, "/api/auth/login",
		`{"identifier": "`+identifier+`", "secret": "s3cret!"}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body auth.LoginResponse
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Token
}

func decodeError(t *testing.T, raw []byte) auth.ErrorBody {
	t.Helper()
	var body auth.ErrorBody
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestAuthController_Signup(t *testing.T) {
	f := newControllerFixture(t)

	resp, raw := f.do(t, http.MethodPost, "/api/auth/signup", `{
		"username": "alice",
		"email": "alice@example.com",
		"secret": "s3cret!",
		"displayName": "Alice"
	}`, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var identity auth.Identity
	require.NoError(t, json.Unmarshal(raw, &identity))
	assert.NotEmpty(t, identity.ID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.Equal(t, "Alice", identity.DisplayName)
	assert.Equal(t, auth.RoleUser, identity.Role)
	assert.NotContains(t, string(raw), "secret")
	assert.NotContains(t, string(raw), "password")

	t.Run("username conflict", func(t *testing.T) {
		resp, raw := f.do(t, http.MethodPost, "/api/auth/signup", `{
			"username": "alice",
			"email": "other@example.com",
			"secret": "s3cret!",
			"displayName": "Other"
		}`, "")
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, auth.ErrUsernameTaken.Message, decodeError(t, raw).Message)
	})

	t.Run("email conflict", func(t *testing.T) {
		resp, raw := f.do(t, http.MethodPost, "/api/auth/signup", `{
			"username": "other",
			"email": "alice@example.com",
			"secret": "s3cret!",
			"displayName": "Other"
		}`, "")
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		assert.Equal(t, auth.ErrEmailTaken.Message, decodeError(t, raw).Message)
	})
}

func TestAuthController_SignupValidation(t *testing.T) {
	f := newControllerFixture(t)

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{
			name:  "short username",
			body:  `{"username":"al","email":"al@example.com","secret":"s3cret!","displayName":"Al"}`,
			field: "username",
		},
		{
			name:  "bad email",
			body:  `{"username":"alice","email":"not-an-email","secret":"s3cret!","displayName":"Alice"}`,
			field: "email",
		},
		{
			name:  "short secret",
			body:  `{"username":"alice","email":"alice@example.com","secret":"123","displayName":"Alice"}`,
			field: "secret",
		},
		{
			name:  "missing display name",
			body:  `{"username":"alice","email":"alice@example.com","secret":"s3cret!"}`,
			field: "displayName",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := f.do(t, http.MethodPost, "/api/auth/signup", tt.body, "")
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			body := decodeError(t, raw)
			assert.Equal(t, 400, body.Status)
			details, ok := body.Details.(map[string]any)
			require.True(t, ok)
			assert.Contains(t, details, tt.field)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, "/api/auth/signup", `{"username":`, "")
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestAuthController_Login(t *testing.T) {
	f := newControllerFixture(t)
	f.signup(t, "alice")

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "by username", body: `{"identifier":"alice","secret":"s3cret!"}`, wantStatus: 200},
		{name: "by email", body: `{"identifier":"alice@example.com","secret":"s3cret!"}`, wantStatus: 200},
		{name: "wrong secret", body: `{"identifier":"alice","secret":"nope-nope"}`, wantStatus: 401},
		{name: "unknown user", body: `{"identifier":"ghost","secret":"s3cret!"}`, wantStatus: 401},
		{name: "missing secret", body: `{"identifier":"alice"}`, wantStatus: 400},
		{name: "missing identifier", body: `{"secret":"s3cret!"}`, wantStatus: 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := f.do(t, http.MethodPost, "/api/auth/login", tt.body, "")
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			switch tt.wantStatus {
			case fiber.StatusOK:
				var body auth.LoginResponse
				require.NoError(t, json.Unmarshal(raw, &body))
				assert.NotEmpty(t, body.Token)
				assert.Equal(t, "Bearer", body.TokenType)
				assert.Equal(t, "alice", body.Username)
				assert.Equal(t, "alice@example.com", body.Email)
				assert.Equal(t, auth.RoleUser, body.Role)

				subject, err := f.tokens.ParseSubject(body.Token)
				require.NoError(t, err)
				assert.Equal(t, "alice", subject)
			case fiber.StatusUnauthorized:
				// unknown user and wrong secret must be indistinguishable
				assert.Equal(t, auth.ErrInvalidCredentials.Message, decodeError(t, raw).Message)
			}
		})
	}
}

func TestAuthController_LoginDisabledAccount(t *testing.T) {
	f := newControllerFixture(t)
	f.signup(t, "alice")

	user, err := f.repo.FindByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NoError(t, f.repo.SetEnabled(context.Background(), user.ID, false))

	resp, raw := f.do(t, http.MethodPost, "/api/auth/login", `{"identifier":"alice","secret":"s3cret!"}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.ErrInvalidCredentials.Message, decodeError(t, raw).Message)
}

func TestAuthController_Me(t *testing.T) {
	f := newControllerFixture(t)
	f.signup(t, "alice")
	token := f.login(t, "alice")

	resp, raw := f.do(t, http.MethodGet, "/api/users/me", "", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var identity auth.Identity
	require.NoError(t, json.Unmarshal(raw, &identity))
	assert.Equal(t, "alice", identity.Username)

	t.Run("without token", func(t *testing.T) {
		resp, raw := f.do(t, http.MethodGet, "/api/users/me", "", "")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		body := decodeError(t, raw)
		assert.Equal(t, "Unauthorized", body.Error)
		assert.Equal(t, "/api/users/me", body.Path)
	})

	t.Run("with garbage token", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/api/users/me", "", "not.a.jwt")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("token for unknown user", func(t *testing.T) {
		ghost, err := f.tokens.Issue("ghost")
		require.NoError(t, err)
		resp, _ := f.do(t, http.MethodGet, "/api/users/me", "", ghost)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthController_Availability(t *testing.T) {
	f := newControllerFixture(t)
	f.signup(t, "alice")
	token := f.login(t, "alice")

	tests := []struct {
		path string
		want bool
	}{
		{"/api/check-username/alice", false},
		{"/api/check-username/bob", true},
		{"/api/check-email/alice@example.com", false},
		{"/api/check-email/bob@example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, raw := f.do(t, http.MethodGet, tt.path, "", token)
			require.Equal(t, fiber.StatusOK, resp.StatusCode)

			var body auth.AvailabilityResponse
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tt.want, body.Available)
		})
	}

	t.Run("requires authentication", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodGet, "/api/check-username/bob", "", "")
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAuthController_TestRoutes(t *testing.T) {
	f := newControllerFixture(t)
	f.signup(t, "alice")
	token := f.login(t, "alice")

	tests := []struct {
		name        string
		path        string
		token       string
		wantStatus  int
		wantContent string
	}{
		{name: "public anonymous", path: "/api/test/all", wantStatus: 200, wantContent: "Public Content."},
		{name: "public bad token", path: "/api/test/all", token: "garbage", wantStatus: 200, wantContent: "Public Content."},
		{name: "user anonymous", path: "/api/test/user", wantStatus: 401},
		{name: "user with token", path: "/api/test/user", token: token, wantStatus: 200, wantContent: "User Content."},
		{name: "admin as user", path: "/api/test/admin", token: token, wantStatus: 403},
		{name: "admin anonymous", path: "/api/test/admin", wantStatus: 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := f.do(t, http.MethodGet, tt.path, "", tt.token)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			if tt.wantContent != "" {
				var body map[string]string
				require.NoError(t, json.Unmarshal(raw, &body))
				assert.Equal(t, tt.wantContent, body["content"])
			}
		})
	}
}

// stubAuthenticator lets tests force Authenticator failures
type stubAuthenticator struct {
	mock.Mock
}

func (s *stubAuthenticator) Login(ctx context.Context, creds auth.Credentials) (*auth.LoginResult, error) {
	args := s.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.LoginResult), args.Error(1)
}

func (s *stubAuthenticator) Register(ctx context.Context, signup auth.Signup) (*auth.Identity, error) {
	args := s.Called(ctx, signup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Identity), args.Error(1)
}

func (s *stubAuthenticator) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	args := s.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (s *stubAuthenticator) EmailAvailable(ctx context.Context, email string) (bool, error) {
	args := s.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func TestAuthController_InternalErrorsAreMasked(t *testing.T) {
	stub := new(stubAuthenticator)
	stub.On("Login", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection refused: db-primary:5432"))

	store := new(MockCredentialStore)
	app := newControllerApp(t, stub, store, newTestTokenService(t))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"identifier":"alice","secret":"s3cret!"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := decodeError(t, raw)
	assert.Equal(t, auth.MessageInternalError, body.Message)
	assert.NotContains(t, string(raw), "db-primary")

	stub.AssertExpectations(t)
}

func TestAuthController_StatusFollowsErrorCategory(t *testing.T) {
	signup := `{"username":"alice","email":"alice@example.com","secret":"s3cret!","displayName":"Alice"}`

	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "conflict sentinel",
			err:         auth.ErrEmailTaken,
			wantStatus:  fiber.StatusConflict,
			wantMessage: auth.ErrEmailTaken.Message,
		},
		{
			name:        "conflict without code",
			err:         goerrors.New("account is being created", goerrors.CategoryConflict),
			wantStatus:  fiber.StatusConflict,
			wantMessage: "account is being created",
		},
		{
			name:        "authz",
			err:         auth.ErrForbidden,
			wantStatus:  fiber.StatusForbidden,
			wantMessage: auth.ErrForbidden.Message,
		},
		{
			name:        "internal wrap",
			err:         goerrors.Wrap(errors.New("disk full: /var/lib/authgate"), goerrors.CategoryInternal, "could not create user"),
			wantStatus:  fiber.StatusInternalServerError,
			wantMessage: auth.MessageInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := new(stubAuthenticator)
			stub.On("Register", mock.Anything, mock.Anything).Return(nil, tt.err)

			app := newControllerApp(t, stub, new(MockCredentialStore), newTestTokenService(t))

			req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(signup))
			req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			body := decodeError(t, raw)
			assert.Equal(t, tt.wantStatus, body.Status)
			assert.Equal(t, tt.wantMessage, body.Message)
			assert.NotContains(t, string(raw), "/var/lib")
		})
	}
}

func TestNewAuthController_Panics(t *testing.T) {
	assert.Panics(t, func() { auth.NewAuthController() })
	assert.Panics(t, func() {
		auth.NewAuthController(auth.WithAuthenticator(new(stubAuthenticator)))
	})
	assert.NotPanics(t, func() {
		auth.NewAuthController(
			auth.WithAuthenticator(new(stubAuthenticator)),
			auth.WithRoleGuard(routepolicy.RequireRole),
		)
	})
}
