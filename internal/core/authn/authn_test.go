package authn

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yndnr/tradegate-go/internal/core/domain"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// mockUsers implements SubjectResolver for testing.
type mockUsers struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	err   error
}

func newMockUsers(ids ...string) *mockUsers {
	m := &mockUsers{users: make(map[string]*domain.User)}
	for _, id := range ids {
		m.users[id] = &domain.User{ID: id, Email: id + "@example.com"}
	}
	return m
}

func (m *mockUsers) GetUser(ctx context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUsers) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

var epoch = time.Unix(1700000000, 0)

func newTestAuthenticator(t *testing.T, users SubjectResolver) (*Authenticator, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: epoch}
	a, err := New(Config{
		Secret:     testSecret,
		BcryptCost: bcrypt.MinCost,
		Clock:      clock.Now,
	}, users)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a, clock
}

func TestNew_Validation(t *testing.T) {
	users := newMockUsers()

	tests := []struct {
		name    string
		cfg     Config
		users   SubjectResolver
		wantErr bool
	}{
		{"valid", Config{Secret: testSecret}, users, false},
		{"short secret", Config{Secret: []byte("short")}, users, true},
		{"nil resolver", Config{Secret: testSecret}, nil, true},
		{"cost too high", Config{Secret: testSecret, BcryptCost: 40}, users, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.users)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(Config{Secret: testSecret}, newMockUsers())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.TokenTTL() != 60*time.Minute {
		t.Errorf("TokenTTL() = %v, want 60m", a.TokenTTL())
	}
	if a.cost != bcrypt.DefaultCost {
		t.Errorf("cost = %d, want %d", a.cost, bcrypt.DefaultCost)
	}
}

func TestPassword_HashAndVerify(t *testing.T) {
	a, _ := newTestAuthenticator(t, newMockUsers())

	h1, err := a.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	h2, _ := a.HashPassword("correct horse")
	if h1 == h2 {
		t.Error("hashes of the same password should differ (fresh salt)")
	}
	if !strings.HasPrefix(h1, "$2") {
		t.Errorf("hash %q is not a bcrypt hash", h1)
	}

	if !a.VerifyPassword("correct horse", h1) || !a.VerifyPassword("correct horse", h2) {
		t.Error("VerifyPassword() should accept the original password")
	}
	if a.VerifyPassword("wrong horse", h1) {
		t.Error("VerifyPassword() should reject a wrong password")
	}
	if a.VerifyPassword("correct horse", "not-a-hash") {
		t.Error("VerifyPassword() should reject an invalid hash")
	}
}

func TestToken_Lifecycle(t *testing.T) {
	users := newMockUsers("usr-1")
	a, clock := newTestAuthenticator(t, users)
	ctx := context.Background()

	token, exp, err := a.IssueToken("usr-1")
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if !exp.Equal(epoch.Add(60 * time.Minute)) {
		t.Errorf("expiresAt = %v, want %v", exp, epoch.Add(60*time.Minute))
	}

	user, err := a.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if user.ID != "usr-1" {
		t.Errorf("user.ID = %q, want %q", user.ID, "usr-1")
	}

	clock.Set(epoch.Add(59*time.Minute + 59*time.Second))
	if _, err := a.ValidateToken(ctx, token); err != nil {
		t.Errorf("ValidateToken() one second before expiry error = %v", err)
	}

	clock.Set(epoch.Add(60 * time.Minute))
	if _, err := a.ValidateToken(ctx, token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("ValidateToken() at expiry error = %v, want ErrTokenExpired", err)
	}

	clock.Set(epoch.Add(61 * time.Minute))
	if _, err := a.ValidateToken(ctx, token); !errors.Is(err, domain.ErrTokenExpired) {
		t.Errorf("ValidateToken() after expiry error = %v, want ErrTokenExpired", err)
	}
}

func TestToken_ClaimsContents(t *testing.T) {
	a, _ := newTestAuthenticator(t, newMockUsers("usr-1"))
	token, _, _ := a.IssueToken("usr-1")

	claims, err := a.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "usr-1" {
		t.Errorf("sub = %q, want usr-1", claims.Subject)
	}
	if claims.ExpiresAt.Unix() != epoch.Add(time.Hour).Unix() {
		t.Errorf("exp = %d, want %d", claims.ExpiresAt.Unix(), epoch.Add(time.Hour).Unix())
	}
}

func TestValidateToken_TamperedSignature(t *testing.T) {
	a, _ := newTestAuthenticator(t, newMockUsers("usr-1"))
	token, _, _ := a.IssueToken("usr-1")

	parts := strings.Split(token, ".")
	sig := []byte(parts[2])
	mid := len(sig) / 2
	if sig[mid] == 'A' {
		sig[mid] = 'B'
	} else {
		sig[mid] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err := a.ValidateToken(context.Background(), tampered)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidSignature", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	users := newMockUsers("usr-1")
	a, _ := newTestAuthenticator(t, users)
	other, err := New(Config{
		Secret:     []byte("ffffffffffffffffffffffffffffffff"),
		BcryptCost: bcrypt.MinCost,
		Clock:      func() time.Time { return epoch },
	}, users)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	token, _, _ := other.IssueToken("usr-1")
	if _, err := a.ValidateToken(context.Background(), token); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidSignature", err)
	}
}

func TestValidateToken_Malformed(t *testing.T) {
	a, _ := newTestAuthenticator(t, newMockUsers("usr-1"))

	sign := func(method jwt.SigningMethod, claims jwt.Claims, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}
	exp := jwt.NewNumericDate(epoch.Add(time.Hour))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-token"},
		{"two segments", "abc.def"},
		{"bad base64 payload", "eyJhbGciOiJIUzI1NiJ9.!!!.abc"},
		{"missing exp", sign(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "usr-1"}, testSecret)},
		{"missing sub", sign(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: exp}, testSecret)},
		{"HS512", sign(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "usr-1", ExpiresAt: exp}, testSecret)},
		{"alg none", sign(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "usr-1", ExpiresAt: exp}, jwt.UnsafeAllowNoneSignatureType)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.ValidateToken(context.Background(), tt.token)
			if !errors.Is(err, domain.ErrMalformedToken) {
				t.Errorf("ValidateToken() error = %v, want ErrMalformedToken", err)
			}
		})
	}
}

func TestValidateToken_UnknownSubject(t *testing.T) {
	users := newMockUsers("usr-1")
	a, _ := newTestAuthenticator(t, users)
	token, _, _ := a.IssueToken("usr-1")

	users.remove("usr-1")
	if _, err := a.ValidateToken(context.Background(), token); !errors.Is(err, domain.ErrUnknownSubject) {
		t.Errorf("ValidateToken() error = %v, want ErrUnknownSubject", err)
	}
}

func TestValidateToken_ResolverFailure(t *testing.T) {
	users := newMockUsers("usr-1")
	a, _ := newTestAuthenticator(t, users)
	token, _, _ := a.IssueToken("usr-1")

	users.err = domain.ErrStorageError
	_, err := a.ValidateToken(context.Background(), token)
	if !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("ValidateToken() error = %v, want ErrStorageError", err)
	}
	if IsAuthError(err) {
		t.Error("storage failure must not be classified as an auth error")
	}
}

func TestIssueToken_EmptySubject(t *testing.T) {
	a, _ := newTestAuthenticator(t, newMockUsers())
	if _, _, err := a.IssueToken(""); !errors.Is(err, domain.ErrMissingArgument) {
		t.Errorf("IssueToken(\"\") error = %v, want ErrMissingArgument", err)
	}
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrInvalidSignature, "invalid_signature"},
		{domain.ErrMalformedToken.WithCause(errors.New("x")), "malformed"},
		{domain.ErrTokenExpired, "expired"},
		{domain.ErrUnknownSubject, "unknown_subject"},
		{domain.ErrUnauthenticated, "missing"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		if got := Reason(tt.err); got != tt.want {
			t.Errorf("Reason(%v) = %q, want %q", tt.err, got, tt.want)
		}
		if tt.want != "error" && !IsAuthError(tt.err) {
			t.Errorf("IsAuthError(%v) = false, want true", tt.err)
		}
	}
}

func TestUserContext(t *testing.T) {
	if UserFromContext(context.Background()) != nil {
		t.Error("empty context should carry no user")
	}
	u := &domain.User{ID: "usr-1"}
	if got := UserFromContext(WithUser(context.Background(), u)); got != u {
		t.Errorf("UserFromContext() = %v", got)
	}
}
