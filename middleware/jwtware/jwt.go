package jwtware

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-auth-gate"
)

const (
	// AuthScheme is the only accepted authorization scheme, including the
	// separating space.
	AuthScheme = "Bearer "

	HeaderTokenValid  = "X-Token-Valid"
	HeaderTokenUser   = "X-Token-User"
	HeaderTokenError  = "X-Token-Error"
	HeaderTokenStatus = "X-Token-Status"
)

// TokenParser is the subset of auth.TokenService the gate needs
type TokenParser interface {
	ParseSubject(tokenString string) (string, error)
	IsValid(tokenString, expectedSubject string) bool
}

// IdentityFinder resolves the token subject into a user record
type IdentityFinder interface {
	FindByUsername(ctx context.Context, username string) (*auth.User, error)
}

type Config struct {
	// Filter skips the gate entirely when it returns true
	Filter func(router.Context) bool
	// TokenLookup is the header carrying the credential, Authorization by default
	TokenLookup string

	Tokens     TokenParser
	Identities IdentityFinder

	Logger       auth.Logger
	ActivitySink auth.ActivitySink

	// DebugHeaders emits X-Token-* response headers describing the outcome
	DebugHeaders bool
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Tokens == nil {
		panic("AUTH: JWT middleware configuration: Tokens is required.")
	}

	if cfg.Identities == nil {
		panic("AUTH: JWT middleware configuration: Identities is required.")
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = router.HeaderAuthorization
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.DefaultLogger()
	}

	return cfg
}

// New returns the request gate. It resolves the bearer token of every
// request into an auth.Outcome stored on the request context and always
// hands the request to the next handler. Answering unauthenticated requests
// is left to the route policy.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return next(ctx)
			}

			// an identity installed upstream, or by an earlier run of the
			// gate, is kept and the request is not reported twice
			if current, ok := auth.OutcomeFromContext(ctx.Context()); ok && current.IsAuthenticated() {
				return next(ctx)
			}

			raw, present := ExtractBearer(ctx.GetString(cfg.TokenLookup, ""))
			if !present {
				return next(ctx)
			}

			outcome, user := cfg.authenticate(ctx.Context(), raw)
			cfg.report(ctx, outcome, user)

			ctx.SetContext(auth.WithOutcome(ctx.Context(), outcome))

			return next(ctx)
		}
	}
}

// ExtractBearer returns the token carried by an authorization header value.
// present is false when the header is empty or uses another scheme. A bare
// "Bearer" is present with an empty token since servers trim the trailing
// space.
func ExtractBearer(header string) (token string, present bool) {
	if header == strings.TrimSpace(AuthScheme) {
		return "", true
	}
	if !strings.HasPrefix(header, AuthScheme) {
		return "", false
	}
	return strings.TrimSpace(header[len(AuthScheme):]), true
}

func (cfg Config) authenticate(ctx context.Context, raw string) (auth.Outcome, *auth.User) {
	if raw == "" {
		return auth.RejectedOutcome(auth.RejectEmptyClaims), nil
	}

	subject, err := cfg.Tokens.ParseSubject(raw)
	if err != nil {
		return auth.RejectedOutcome(auth.RejectReasonFor(err)), nil
	}

	user, err := cfg.Identities.FindByUsername(ctx, subject)
	if err != nil || user == nil {
		if err == nil {
			err = auth.ErrIdentityNotFound
		}
		if !errors.Is(err, auth.ErrIdentityNotFound) {
			cfg.Logger.Error("token identity lookup failed", "subject", subject, "error", err)
		}
		return auth.RejectedOutcome(auth.RejectReasonFor(err)), nil
	}

	if !cfg.Tokens.IsValid(raw, user.Username) {
		return auth.RejectedOutcome(auth.RejectInvalid), user
	}

	return auth.AuthenticatedOutcome(user), user
}

func (cfg Config) report(ctx router.Context, outcome auth.Outcome, user *auth.User) {
	event := auth.ActivityEvent{
		Metadata: map[string]any{
			"path":   ctx.Path(),
			"method": ctx.Method(),
		},
	}

	if user != nil {
		event.UserID = user.ID.String()
		event.Username = user.Username
	}

	if outcome.IsAuthenticated() {
		event.EventType = auth.ActivityEventTokenAccepted
		cfg.Logger.Debug("token accepted", "username", outcome.Identity.Username, "path", ctx.Path())
	} else {
		event.EventType = auth.ActivityEventTokenRejected
		event.Reason = string(outcome.Reason)
		cfg.Logger.Warn("token rejected", "reason", outcome.Reason, "path", ctx.Path())
	}

	auth.EmitActivity(ctx.Context(), cfg.ActivitySink, cfg.Logger, event)

	if !cfg.DebugHeaders {
		return
	}

	if outcome.IsAuthenticated() {
		ctx.SetHeader(HeaderTokenValid, "true")
		ctx.SetHeader(HeaderTokenUser, outcome.Identity.Username)
		return
	}

	ctx.SetHeader(HeaderTokenValid, "false")
	ctx.SetHeader(HeaderTokenError, string(outcome.Reason))
	ctx.SetHeader(HeaderTokenStatus, outcome.State.String())
}
