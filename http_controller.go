package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RoleGuard builds a middleware that only lets identities holding one of
// roles through.
type RoleGuard func(roles ...Role) router.MiddlewareFunc

type AuthControllerRoutes struct {
	Login         string
	Signup        string
	CheckUsername string
	CheckEmail    string
	Me            string
	TestAll       string
	TestUser      string
	TestAdmin     string
}

type AuthController struct {
	Debug     bool
	Logger    Logger
	Auther    Authenticator
	RoleGuard RoleGuard
	Routes    *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = normalizeLogger(logger)
		return c
	}
}

func WithAuthenticator(a Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = a
		return c
	}
}

func WithRoleGuard(guard RoleGuard) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.RoleGuard = guard
		return c
	}
}

// WithDebug dumps request payloads, without secrets, to the logger
func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:         "/auth/login",
			Signup:        "/auth/signup",
			CheckUsername: "/check-username/:username",
			CheckEmail:    "/check-email/:email",
			Me:            "/users/me",
			TestAll:       "/test/all",
			TestUser:      "/test/user",
			TestAdmin:     "/test/admin",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.RoleGuard == nil {
		panic("Missing RoleGuard in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the account API on app, usually an /api group
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")
	app.Post(controller.Routes.Signup, controller.SignupPost).
		SetName("auth.signup")

	app.Get(controller.Routes.CheckUsername, controller.CheckUsername).
		SetName("check.username")
	app.Get(controller.Routes.CheckEmail, controller.CheckEmail).
		SetName("check.email")

	app.Get(controller.Routes.Me, controller.Me).SetName("users.me")

	app.Get(controller.Routes.TestAll, controller.TestAll).SetName("test.all")
	app.Get(controller.Routes.TestUser,
		controller.TestUser,
		controller.RoleGuard(RoleUser, RoleAdmin),
	).SetName("test.user")
	app.Get(controller.Routes.TestAdmin,
		controller.TestAdmin,
		controller.RoleGuard(RoleAdmin),
	).SetName("test.admin")

	return controller
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `json:"identifier" form:"identifier"`
	Secret     string `json:"secret" form:"secret"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Secret, validation.Required),
	)
}

// LoginResponse is the flat body returned by a successful login
type LoginResponse struct {
	Token       string `json:"token"`
	TokenType   string `json:"tokenType"`
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        Role   `json:"role"`
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		return malformedRequest(err)
	}

	payload.Identifier = strings.TrimSpace(payload.Identifier)

	if err := payload.Validate(); err != nil {
		return ValidationError(err)
	}

	if a.Debug {
		a.Logger.Debug("login request", "payload", print.MaybePrettyJSON(LoginRequest{
			Identifier: payload.Identifier,
			Secret:     "********",
		}))
	}

	res, err := a.Auther.Login(ctx.Context(), Credentials{
		Identifier: payload.Identifier,
		Secret:     payload.Secret,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, LoginResponse{
		Token:       res.Token,
		TokenType:   res.TokenType,
		ID:          res.Identity.ID,
		Username:    res.Identity.Username,
		Email:       res.Identity.Email,
		DisplayName: res.Identity.DisplayName,
		Role:        res.Identity.Role,
	})
}

// SignupRequest payload
type SignupRequest struct {
	Username    string `json:"username" form:"username"`
	Email       string `json:"email" form:"email"`
	Secret      string `json:"secret" form:"secret"`
	DisplayName string `json:"displayName" form:"displayName"`
}

// Validate will validate the payload
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Secret, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 200)),
	)
}

func (a *AuthController) SignupPost(ctx router.Context) error {
	payload := new(SignupRequest)
	if err := ctx.Bind(payload); err != nil {
		return malformedRequest(err)
	}

	payload.Username = strings.TrimSpace(payload.Username)
	payload.Email = strings.TrimSpace(payload.Email)

	if err := payload.Validate(); err != nil {
		return ValidationError(err)
	}

	if a.Debug {
		scrubbed := *payload
		scrubbed.Secret = "********"
		a.Logger.Debug("signup request", "payload", print.MaybePrettyJSON(scrubbed))
	}

	identity, err := a.Auther.Register(ctx.Context(), Signup{
		Username:    payload.Username,
		Email:       payload.Email,
		Secret:      payload.Secret,
		DisplayName: payload.DisplayName,
	})
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, identity)
}

// AvailabilityResponse answers the check-* endpoints
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

func (a *AuthController) CheckUsername(ctx router.Context) error {
	available, err := a.Auther.UsernameAvailable(ctx.Context(), ctx.Param("username"))
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, AvailabilityResponse{Available: available})
}

func (a *AuthController) CheckEmail(ctx router.Context) error {
	available, err := a.Auther.EmailAvailable(ctx.Context(), ctx.Param("email"))
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, AvailabilityResponse{Available: available})
}

// Me returns the identity of the caller
func (a *AuthController) Me(ctx router.Context) error {
	identity, ok := IdentityFromContext(ctx.Context())
	if !ok {
		return WriteUnauthorized(ctx)
	}
	return ctx.JSON(router.StatusOK, identity)
}

func (a *AuthController) TestAll(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{"content": "Public Content."})
}

func (a *AuthController) TestUser(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{"content": "User Content."})
}

func (a *AuthController) TestAdmin(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{"content": "Admin Board."})
}

func malformedRequest(err error) error {
	return errors.Wrap(err, errors.CategoryBadInput, "malformed request body").
		WithTextCode(TextCodeMalformedRequest).
		WithCode(errors.CodeBadRequest)
}
