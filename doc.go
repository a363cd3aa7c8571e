// Package auth provides a stateless bearer token authentication layer
// (JWT issuance, credential verification, request-scoped identity) for fiber
// based HTTP services.
//
// Token lifecycle:
//   - Auther verifies credentials against a CredentialStore and issues HS256
//     tokens through TokenService. Failed logins always surface the same
//     ErrInvalidCredentials so callers cannot enumerate existing accounts.
//   - TokenService.ParseSubject classifies failures as ErrTokenExpired,
//     ErrTokenBadSignature or ErrTokenMalformed. IsValid collapses the same
//     checks into a boolean.
//
// Request handling:
//   - The gate in middleware/jwtware turns a valid bearer token into an
//     Outcome stored on the request context. It never rejects a request.
//   - middleware/routepolicy decides which routes need an authenticated
//     Outcome and renders the 401/403 error bodies.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Auther and the gate
//     to describe login, registration and token validation events. Sinks run
//     best-effort (errors are logged). Metrics implements ActivitySink so the
//     same events feed prometheus counters.
package auth
