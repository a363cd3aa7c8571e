package auth

import (
	"context"
)

var outcomeCtxKey = &contextKey{"auth_outcome"}

type contextKey struct {
	name string
}

// OutcomeState is the result of authenticating one request
type OutcomeState int

const (
	// Unauthenticated no credential was presented
	Unauthenticated OutcomeState = iota
	// Authenticated a token was validated and its identity resolved
	Authenticated
	// Rejected a credential was presented but could not be validated
	Rejected
)

func (s OutcomeState) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Rejected:
		return "rejected"
	default:
		return "unauthenticated"
	}
}

// RejectReason classifies why a presented token was not accepted
type RejectReason string

const (
	RejectNone         RejectReason = ""
	RejectExpired      RejectReason = "EXPIRED"
	RejectBadSignature RejectReason = "INVALID_SIGNATURE"
	RejectMalformed    RejectReason = "MALFORMED"
	RejectEmptyClaims  RejectReason = "EMPTY_CLAIMS"
	RejectUserNotFound RejectReason = "USER_NOT_FOUND"
	RejectInvalid      RejectReason = "INVALID"
	RejectUnknown      RejectReason = "UNKNOWN_ERROR"
)

// RejectReasonFor maps a token or lookup error onto a RejectReason
func RejectReasonFor(err error) RejectReason {
	if err == nil {
		return RejectNone
	}

	switch TextCodeOf(err) {
	case TextCodeTokenExpired:
		return RejectExpired
	case TextCodeTokenBadSignature:
		return RejectBadSignature
	case TextCodeTokenMalformed:
		return RejectMalformed
	case TextCodeIdentityNotFound:
		return RejectUserNotFound
	default:
		return RejectUnknown
	}
}

// Outcome is the request-scoped authentication result. The zero value is
// an unauthenticated outcome.
type Outcome struct {
	State    OutcomeState
	Identity Identity
	Roles    []string
	Reason   RejectReason
}

// AuthenticatedOutcome builds the outcome for a resolved user
func AuthenticatedOutcome(user *User) Outcome {
	return Outcome{
		State:    Authenticated,
		Identity: user.Identity(),
		Roles:    GrantedRoles(user.Role),
	}
}

// RejectedOutcome builds the outcome for a failed validation
func RejectedOutcome(reason RejectReason) Outcome {
	return Outcome{State: Rejected, Reason: reason}
}

// IsAuthenticated reports whether an identity was established
func (o Outcome) IsAuthenticated() bool {
	return o.State == Authenticated
}

// HasAnyRole checks the granted roles of an authenticated outcome
func (o Outcome) HasAnyRole(roles ...Role) bool {
	return o.IsAuthenticated() && HasAnyRole(o.Roles, roles...)
}

// WithOutcome stores the outcome in the given context
func WithOutcome(ctx context.Context, outcome Outcome) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, outcomeCtxKey, outcome)
}

// OutcomeFromContext returns the outcome stored in ctx, if any
func OutcomeFromContext(ctx context.Context) (Outcome, bool) {
	if ctx == nil {
		return Outcome{}, false
	}
	o, ok := ctx.Value(outcomeCtxKey).(Outcome)
	return o, ok
}

// IdentityFromContext returns the authenticated identity in ctx. It only
// reports true for an authenticated outcome.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	o, ok := OutcomeFromContext(ctx)
	if !ok || !o.IsAuthenticated() {
		return Identity{}, false
	}
	return o.Identity, true
}
