package auth

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// MinSigningKeyLength is the shortest HS256 key we accept, in bytes
const MinSigningKeyLength = 32

// DefaultTokenTTL is used when the configured TTL is not positive
const DefaultTokenTTL = 24 * time.Hour

// TokenClaims are the only claims we put in a token
type TokenClaims struct {
	jwt.RegisteredClaims
}

// TokenService issues and validates signed expiring tokens. It only reads its
// key and TTL after construction so it is safe for concurrent use.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(signingKey []byte, ttl time.Duration, logger Logger) (*TokenService, error) {
	if len(signingKey) < MinSigningKeyLength {
		return nil, ErrWeakSigningKey
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	return &TokenService{
		signingKey: key,
		ttl:        ttl,
		logger:     normalizeLogger(logger),
	}, nil
}

// NewTokenServiceFromConfig builds a TokenService out of Config
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenService, error) {
	return NewTokenService([]byte(cfg.GetSigningKey()), cfg.GetTokenTTL(), logger)
}

// TTL returns the default lifetime of issued tokens
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue signs a token for subject using the configured TTL
func (ts *TokenService) Issue(subject string) (string, error) {
	return ts.IssueWithTTL(subject, ts.ttl)
}

// IssueWithTTL signs a token for subject expiring ttl from now. A zero ttl
// yields a token that is already expired.
func (ts *TokenService) IssueWithTTL(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", withCause(ErrTokenMalformed, stderrors.New("empty subject"))
	}

	if ttl < 0 {
		return "", errors.New(fmt.Sprintf("token TTL must be non-negative, got %s", ttl), errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	now := time.Now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// ParseSubject verifies the token and returns its subject. Failures wrap
// one of ErrTokenExpired, ErrTokenBadSignature or ErrTokenMalformed.
func (ts *TokenService) ParseSubject(tokenString string) (string, error) {
	claims, err := ts.parse(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Claims verifies the token and returns its claims
func (ts *TokenService) Claims(tokenString string) (*TokenClaims, error) {
	return ts.parse(tokenString)
}

// IsValid reports whether the token verifies, is not expired and was
// issued for expectedSubject.
func (ts *TokenService) IsValid(tokenString, expectedSubject string) bool {
	subject, err := ts.ParseSubject(tokenString)
	if err != nil {
		return false
	}
	return expectedSubject != "" && subject == expectedSubject
}

func (ts *TokenService) parse(tokenString string) (*TokenClaims, error) {
	if tokenString == "" {
		return nil, withCause(ErrTokenMalformed, stderrors.New("empty token"))
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
	)

	claims := &TokenClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	})

	if err != nil {
		return nil, ts.classify(tokenString, err)
	}

	if !token.Valid {
		return nil, withCause(ErrTokenMalformed, stderrors.New("token not valid"))
	}

	if claims.Subject == "" {
		return nil, withCause(ErrTokenMalformed, stderrors.New("missing subject claim"))
	}

	return claims, nil
}

// classify maps jwt parser errors onto our taxonomy. The parser checks the
// signature before claims, so an expired error implies a good signature.
//
// A token is split on "." before anything is verified: a "." inside the
// signature segment yields four segments and is reported as malformed, not
// as a bad signature.
func (ts *TokenService) classify(tokenString string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return withCause(ErrTokenBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return withCause(ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		// header and claims decode fine, so the signature segment is the
		// broken part.
		if _, _, uerr := jwt.NewParser().ParseUnverified(tokenString, &TokenClaims{}); uerr == nil {
			return withCause(ErrTokenBadSignature, err)
		}
		return withCause(ErrTokenMalformed, err)
	default:
		ts.logger.Debug("token rejected with unclassified error", "error", err)
		return withCause(ErrTokenMalformed, err)
	}
}
