package authn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// Defaults.
const (
	DefaultTokenTTL   = 60 * time.Minute
	DefaultBcryptCost = bcrypt.DefaultCost

	// MinSecretLength is the minimum HS256 secret length in bytes.
	MinSecretLength = 32
)

// SubjectResolver looks up the user a token was issued to.
type SubjectResolver interface {
	// GetUser returns domain.ErrUserNotFound when the user does not exist.
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Claims is the JWT payload of a session token.
type Claims struct {
	jwt.RegisteredClaims
}

// Config holds Authenticator settings.
type Config struct {
	// Secret is the HS256 signing key.
	Secret []byte

	// TokenTTL is the token lifetime (default: 60m).
	TokenTTL time.Duration

	// BcryptCost is the bcrypt work factor (default: bcrypt.DefaultCost).
	BcryptCost int

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time
}

// Authenticator hashes passwords and issues/validates session tokens.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	cost   int
	clock  func() time.Time
	users  SubjectResolver
	parser *jwt.Parser
}

// New creates an Authenticator.
func New(cfg Config, users SubjectResolver) (*Authenticator, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("authn: secret must be at least %d bytes", MinSecretLength)
	}
	if users == nil {
		return nil, errors.New("authn: subject resolver is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultBcryptCost
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("authn: bcrypt cost %d out of range", cfg.BcryptCost)
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	a := &Authenticator{
		secret: append([]byte(nil), cfg.Secret...),
		ttl:    cfg.TokenTTL,
		cost:   cfg.BcryptCost,
		clock:  cfg.Clock,
		users:  users,
	}
	a.parser = jwt.NewParser(
		jwt.WithTimeFunc(a.clock),
		jwt.WithExpirationRequired(),
	)
	return a, nil
}

// TokenTTL returns the configured token lifetime.
func (a *Authenticator) TokenTTL() time.Duration {
	return a.ttl
}

// HashPassword returns a bcrypt hash of plain with a fresh salt.
func (a *Authenticator) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), a.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches hash.
func (a *Authenticator) VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// IssueToken signs a token for subjectID. The returned expiry is the
// second-precision value embedded in the token.
func (a *Authenticator) IssueToken(subjectID string) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, domain.ErrMissingArgument.WithDetails("subject")
	}

	now := a.clock()
	exp := jwt.NewNumericDate(now.Add(a.ttl))
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: exp,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp.Time, nil
}

// ParseToken verifies the signature and expiry of token and returns its
// claims without resolving the subject.
func (a *Authenticator) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := a.parser.ParseWithClaims(token, claims, a.keyFunc)
	if err != nil {
		return nil, classify(err)
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrMalformedToken
	}
	// Valid only while now < exp.
	if !a.clock().Before(claims.ExpiresAt.Time) {
		return nil, domain.ErrTokenExpired
	}
	return claims, nil
}

// ValidateToken parses token and resolves its subject.
func (a *Authenticator) ValidateToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := a.ParseToken(token)
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnknownSubject
		}
		return nil, err
	}
	return user, nil
}

func (a *Authenticator) keyFunc(t *jwt.Token) (any, error) {
	if t.Method != jwt.SigningMethodHS256 {
		return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
	}
	return a.secret, nil
}

// classify maps parser errors onto the authentication error kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return domain.ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return domain.ErrTokenExpired
	default:
		return domain.ErrMalformedToken.WithCause(err)
	}
}

// IsAuthError reports whether err is one of the token failure kinds that
// map to 401.
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrInvalidSignature) ||
		errors.Is(err, domain.ErrMalformedToken) ||
		errors.Is(err, domain.ErrTokenExpired) ||
		errors.Is(err, domain.ErrUnknownSubject) ||
		errors.Is(err, domain.ErrUnauthenticated)
}

// Reason returns a short label for a token failure, used in logs and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, domain.ErrMalformedToken):
		return "malformed"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrUnknownSubject):
		return "unknown_subject"
	case errors.Is(err, domain.ErrUnauthenticated):
		return "missing"
	default:
		return "error"
	}
}
