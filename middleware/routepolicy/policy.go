package routepolicy

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-auth-gate"
)

// Requirement is what a route demands from the caller
type Requirement int

const (
	RequiresAuth Requirement = iota
	Public
)

func (r Requirement) String() string {
	if r == Public {
		return "public"
	}
	return "requires_auth"
}

// Rule pairs a path pattern with its requirement. Patterns use "*" for a
// single path segment and "**" for any number of segments. A trailing
// "/**" also matches the bare prefix.
type Rule struct {
	Pattern     string
	Requirement Requirement
}

// PermitAll is shorthand for a public rule
func PermitAll(pattern string) Rule {
	return Rule{Pattern: pattern, Requirement: Public}
}

// Authenticated is shorthand for a protected rule
func Authenticated(pattern string) Rule {
	return Rule{Pattern: pattern, Requirement: RequiresAuth}
}

// DefaultRules is the table used by the service
func DefaultRules() []Rule {
	return []Rule{
		PermitAll("/api/auth/**"),
		PermitAll("/api/test/**"),
		PermitAll("/healthz"),
		PermitAll("/metrics"),
	}
}

type compiledRule struct {
	Rule
	matcher glob.Glob
}

// Policy is an ordered, immutable route table. Unmatched paths require
// authentication.
type Policy struct {
	rules  []compiledRule
	logger auth.Logger
}

// New compiles rules in order. First match wins.
func New(rules ...Rule) (*Policy, error) {
	p := &Policy{
		rules:  make([]compiledRule, 0, len(rules)),
		logger: auth.DefaultLogger(),
	}

	for _, r := range rules {
		g, err := compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("route policy pattern %q: %w", r.Pattern, err)
		}
		p.rules = append(p.rules, compiledRule{Rule: r, matcher: g})
	}

	return p, nil
}

// MustNew is like New but panics on a bad pattern
func MustNew(rules ...Rule) *Policy {
	p, err := New(rules...)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Policy) WithLogger(logger auth.Logger) *Policy {
	if logger != nil {
		p.logger = logger
	}
	return p
}

func compile(pattern string) (glob.Glob, error) {
	if pattern == "" {
		return nil, fmt.Errorf("empty pattern")
	}

	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok && prefix != "" {
		pattern = "{" + prefix + "," + prefix + "/**}"
	}

	return glob.Compile(pattern, '/')
}

// Classify returns the requirement of the first rule matching path. Matching
// is case sensitive and a trailing slash is significant, the server routes
// the same way.
func (p *Policy) Classify(path string) Requirement {
	for _, r := range p.rules {
		if r.matcher.Match(path) {
			return r.Requirement
		}
	}
	return RequiresAuth
}

// Enforce answers 401 for protected routes when the request carries no
// authenticated outcome. It has to run after the jwtware gate.
func (p *Policy) Enforce() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if p.Classify(ctx.Path()) == Public {
				return next(ctx)
			}

			if _, ok := auth.IdentityFromContext(ctx.Context()); ok {
				return next(ctx)
			}

			outcome, _ := auth.OutcomeFromContext(ctx.Context())
			p.logger.Info("unauthorized request",
				"path", ctx.Path(),
				"method", ctx.Method(),
				"outcome", outcome.State.String(),
				"reason", outcome.Reason,
			)

			return auth.WriteUnauthorized(ctx)
		}
	}
}

// RequireRole guards a route: unauthenticated callers get 401 and
// identities without any of roles get 403.
func RequireRole(roles ...auth.Role) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			outcome, _ := auth.OutcomeFromContext(ctx.Context())
			if !outcome.IsAuthenticated() {
				return auth.WriteUnauthorized(ctx)
			}

			if !outcome.HasAnyRole(roles...) {
				return auth.WriteForbidden(ctx)
			}

			return next(ctx)
		}
	}
}
