package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/yndnr/tradegate-go/internal/core/authn"
	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// TokenTypeBearer is the token_type returned by Login.
const TokenTypeBearer = "bearer"

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// UserService handles registration, login and account lookup.
type UserService struct {
	users   UserRepository
	auth    *authn.Authenticator
	pool    *CryptoPool
	limiter *LoginLimiter
	metrics Metrics
	logger  *slog.Logger

	// decoy is verified against for unknown emails so both failure paths
	// spend one bcrypt comparison.
	decoyOnce sync.Once
	decoy     string
}

// NewUserService creates a UserService.
func NewUserService(users UserRepository, auth *authn.Authenticator, pool *CryptoPool, limiter *LoginLimiter, opts ...Option) *UserService {
	o := applyOptions(opts)
	if pool == nil {
		pool = NewCryptoPool(0)
	}
	if limiter == nil {
		limiter = NewLoginLimiter(DefaultLoginBurst, DefaultLoginInterval, nil)
	}
	return &UserService{
		users:   users,
		auth:    auth,
		pool:    pool,
		limiter: limiter,
		metrics: o.metrics,
		logger:  o.logger,
	}
}

// Register creates an account. The email must be unused.
func (s *UserService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	if err := domain.ValidateRegistration(email, password); err != nil {
		return nil, err
	}

	var hash string
	err := s.pool.Do(ctx, func() error {
		var err error
		hash, err = s.auth.HashPassword(password)
		return err
	})
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	user, err := domain.NewUser(email, hash)
	if err != nil {
		return nil, err
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, storageErr(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a session token.
//
// Unknown emails and wrong passwords return the same error.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.RecordLogin("invalid")
		return nil, domain.ErrInvalidCredentials
	}
	if !s.limiter.Allow(email) {
		s.metrics.RecordLogin("throttled")
		s.logger.WarnContext(ctx, "login throttled", "email", email)
		return nil, domain.ErrLoginThrottled
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, storageErr(err)
	}

	hash := s.decoyHash()
	if user != nil {
		hash = user.PasswordHash
	}

	var ok bool
	err = s.pool.Do(ctx, func() error {
		ok = s.auth.VerifyPassword(password, hash)
		return nil
	})
	if err != nil {
		return nil, domain.ErrServiceUnavailable.WithCause(err)
	}
	if user == nil || !ok {
		s.metrics.RecordLogin("invalid")
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.auth.IssueToken(user.ID)
	if err != nil {
		return nil, domain.ErrInternalServer.WithCause(err)
	}

	s.metrics.RecordLogin("success")
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return &LoginResult{
		AccessToken: token,
		TokenType:   TokenTypeBearer,
		ExpiresAt:   expiresAt,
	}, nil
}

// Me returns the user with the given ID.
func (s *UserService) Me(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("user id is required")
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	return user, nil
}

// SetAdmin grants or revokes the admin role of the account with email.
func (s *UserService) SetAdmin(ctx context.Context, email string, admin bool) (*domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, storageErr(err)
	}
	if user.IsAdmin == admin {
		return user, nil
	}
	user.IsAdmin = admin
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, storageErr(err)
	}
	s.logger.InfoContext(ctx, "admin role changed", "user_id", user.ID, "is_admin", admin)
	return user, nil
}

// List returns every account.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return users, nil
}

// SweepLimiter drops idle login limiters.
func (s *UserService) SweepLimiter() int {
	return s.limiter.Sweep()
}

func (s *UserService) decoyHash() string {
	s.decoyOnce.Do(func() {
		h, err := s.auth.HashPassword("decoy-password-never-matches")
		if err != nil {
			s.logger.Error("failed to build decoy hash", "error", err)
			return
		}
		s.decoy = h
	})
	return s.decoy
}
