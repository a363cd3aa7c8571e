package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
	TextCodeTokenExpired       = "EXPIRED"
	TextCodeTokenBadSignature  = "INVALID_SIGNATURE"
	TextCodeTokenMalformed     = "MALFORMED"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeUsernameTaken      = "USERNAME_TAKEN"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeUnauthorized       = "UNAUTHORIZED"
	TextCodeForbidden          = "FORBIDDEN"
	TextCodeWeakSigningKey     = "WEAK_SIGNING_KEY"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeMalformedRequest   = "MALFORMED_REQUEST"
	TextCodeValidationFailed   = "VALIDATION_FAILED"
	TextCodeRouteNotFound      = "ROUTE_NOT_FOUND"
)

// ErrIdentityNotFound is returned by CredentialStore lookups that match nothing
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenExpired the token signature is valid but its exp claim has passed
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenBadSignature the signature does not verify with the signing key
var ErrTokenBadSignature = errors.New("token signature is invalid", errors.CategoryAuth).
	WithTextCode(TextCodeTokenBadSignature).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed the token is structurally invalid or misses a required claim
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidCredentials is the only error a failed login reports
var ErrInvalidCredentials = errors.New("invalid username/email or password", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrUsernameTaken registration conflict on username
var ErrUsernameTaken = errors.New("username is already taken", errors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(errors.CodeConflict)

// ErrEmailTaken registration conflict on email
var ErrEmailTaken = errors.New("email is already taken", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrUnauthorized the route requires an authenticated identity
var ErrUnauthorized = errors.New("full authentication is required to access this resource", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthorized).
	WithCode(errors.CodeUnauthorized)

// ErrForbidden the authenticated identity lacks the required role
var ErrForbidden = errors.New("access denied, you don't have permission to access this resource", errors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(errors.CodeForbidden)

// ErrWeakSigningKey HS256 keys must carry at least 256 bits
var ErrWeakSigningKey = errors.New("signing key must be at least 32 bytes", errors.CategoryValidation).
	WithTextCode(TextCodeWeakSigningKey).
	WithCode(errors.CodeBadRequest)

// ErrNoEmptyString password must not be empty
var ErrNoEmptyString = errors.New("password can not be an empty string", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// ErrRouteNotFound answers requests that passed the route policy but match
// no handler
var ErrRouteNotFound = errors.New("no handler is registered for this route", errors.CategoryNotFound).
	WithTextCode(TextCodeRouteNotFound).
	WithCode(errors.CodeNotFound)

// withCause returns a copy of base carrying cause. Sentinels are shared so
// they are never modified in place.
func withCause(base *errors.Error, cause error) *errors.Error {
	clone := base.Clone()
	clone.Source = cause
	return clone
}

// TextCodeOf returns the text code of the first rich error in the chain
func TextCodeOf(err error) string {
	if err == nil {
		return ""
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return ""
	}
	return richErr.TextCode
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return TextCodeOf(err) == TextCodeTokenExpired
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	return TextCodeOf(err) == TextCodeTokenMalformed
}

// IsBadSignatureError will check for tampered or foreign tokens
func IsBadSignatureError(err error) bool {
	return TextCodeOf(err) == TextCodeTokenBadSignature
}

// IsConflictError reports username and email conflicts
func IsConflictError(err error) bool {
	if err == nil {
		return false
	}

	var richErr *errors.Error
	return errors.As(err, &richErr) && richErr.Category == errors.CategoryConflict
}
