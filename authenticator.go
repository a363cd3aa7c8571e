package auth

import (
	"context"

	"github.com/goliatone/go-errors"
)

// TokenTypeBearer is the token type reported to clients
const TokenTypeBearer = "Bearer"

type Auther struct {
	store        CredentialStore
	hasher       PasswordHasher
	tokenService *TokenService
	logger       Logger
	activitySink ActivitySink
	dummyHash    string
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Auther
func NewAuthenticator(store CredentialStore, hasher PasswordHasher, tokenService *TokenService) *Auther {
	if hasher == nil {
		hasher = NewBcryptHasher(0)
	}

	return &Auther{
		store:        store,
		hasher:       hasher,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		dummyHash:    randomPasswordHash(hasher),
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() *TokenService {
	return s.tokenService
}

// Login verifies the credentials and issues a token. Every failure caused
// by the credentials themselves is reported as ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	user, err := s.store.FindByIdentifier(ctx, creds.Identifier)
	if err != nil && !errors.Is(err, ErrIdentityNotFound) {
		s.logger.Error("login identity lookup failed", "error", err)
		s.emitLoginFailure(ctx, creds.Identifier, "lookup_error")
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve user during verification")
	}

	if user == nil {
		// compare anyway so unknown users cost the same as wrong passwords
		s.hasher.Verify(creds.Secret, s.dummyHash)
		s.logger.Debug("login rejected", "reason", "identity not found")
		s.emitLoginFailure(ctx, creds.Identifier, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(creds.Secret, user.PasswordHash) {
		s.logger.Debug("login rejected", "reason", "password mismatch", "user_id", user.ID)
		s.emitLoginFailure(ctx, creds.Identifier, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if !user.Enabled {
		s.logger.Warn("login blocked for disabled account", "user_id", user.ID)
		s.emitLoginFailure(ctx, creds.Identifier, "disabled")
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.Issue(user.Username)
	if err != nil {
		s.logger.Error("login token issue failed", "error", err)
		s.emitLoginFailure(ctx, creds.Identifier, "token_error")
		return nil, err
	}

	EmitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID.String(),
		Username:  user.Username,
	})

	return &LoginResult{
		Token:     token,
		TokenType: TokenTypeBearer,
		Identity:  user.Identity(),
	}, nil
}

// Register creates a new USER account. Username conflicts are checked
// before email conflicts and only the first conflict is reported.
func (s *Auther) Register(ctx context.Context, signup Signup) (*Identity, error) {
	taken, err := s.store.ExistsByUsername(ctx, signup.Username)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check username availability")
	}
	if taken {
		s.emitRegistrationRejected(ctx, signup, "username_taken")
		return nil, ErrUsernameTaken
	}

	taken, err = s.store.ExistsByEmail(ctx, signup.Email)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to check email availability")
	}
	if taken {
		s.emitRegistrationRejected(ctx, signup, "email_taken")
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(signup.Secret)
	if err != nil {
		if errors.Is(err, ErrNoEmptyString) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	user, err := s.store.Create(ctx, &User{
		Username:     signup.Username,
		Email:        signup.Email,
		PasswordHash: hash,
		DisplayName:  signup.DisplayName,
		Role:         RoleUser,
		Enabled:      true,
	})
	if err != nil {
		if IsConflictError(err) {
			s.emitRegistrationRejected(ctx, signup, "conflict")
			return nil, err
		}
		s.logger.Error("register create user failed", "error", err)
		return nil, errors.Wrap(err, errors.CategoryInternal, "could not create user")
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	EmitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventUserRegistered,
		UserID:    user.ID.String(),
		Username:  user.Username,
	})

	identity := user.Identity()
	return &identity, nil
}

// UsernameAvailable reports whether no account uses username
func (s *Auther) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	taken, err := s.store.ExistsByUsername(ctx, username)
	return !taken, err
}

// EmailAvailable reports whether no account uses email
func (s *Auther) EmailAvailable(ctx context.Context, email string) (bool, error) {
	taken, err := s.store.ExistsByEmail(ctx, email)
	return !taken, err
}

func (s *Auther) emitLoginFailure(ctx context.Context, identifier, reason string) {
	EmitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Reason:    reason,
		Metadata: map[string]any{
			"identifier": identifier,
		},
	})
}

func (s *Auther) emitRegistrationRejected(ctx context.Context, signup Signup, reason string) {
	EmitActivity(ctx, s.activitySink, s.logger, ActivityEvent{
		EventType: ActivityEventRegistrationRejected,
		Username:  signup.Username,
		Reason:    reason,
	})
}
