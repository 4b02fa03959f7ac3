package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/telemetry/logger"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func newUserService(t *testing.T) (*UserService, *mockRepo, *fakeMetrics, *stepClock) {
	t.Helper()
	repo := newMockRepo()
	clock := &stepClock{now: time.Unix(1700000000, 0)}
	metrics := newFakeMetrics()
	svc := NewUserService(repo, newTestAuth(repo), NewCryptoPool(2),
		NewLoginLimiter(DefaultLoginBurst, DefaultLoginInterval, clock.Now),
		WithMetrics(metrics), WithLogger(logger.Discard()))
	return svc, repo, metrics, clock
}

func TestUserService_Register(t *testing.T) {
	svc, repo, _, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Alice@Example.com ", "correct-horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want normalized", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct-horse" {
		t.Error("password must be stored as a bcrypt hash")
	}
	if user.IsAdmin {
		t.Error("new users are not admins")
	}
	if !domain.IsValidID(user.ID, domain.UserIDPrefix) {
		t.Errorf("ID = %q", user.ID)
	}

	_, err = svc.Register(ctx, "alice@example.com", "another-password")
	if !errors.Is(err, domain.ErrUserConflict) {
		t.Errorf("duplicate Register() error = %v, want ErrUserConflict", err)
	}

	tests := []struct {
		name, email, password string
	}{
		{"bad email", "not-an-email", "correct-horse"},
		{"short password", "bob@example.com", "short"},
		{"empty email", "", "correct-horse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password)
			if !errors.Is(err, domain.ErrUserValidation) {
				t.Errorf("Register() error = %v, want ErrUserValidation", err)
			}
		})
	}

	repo.setErr(errBoom)
	_, err = svc.Register(ctx, "carol@example.com", "correct-horse")
	if !errors.Is(err, domain.ErrStorageError) {
		t.Errorf("Register() with failing repo error = %v, want ErrStorageError", err)
	}
}

func TestUserService_Login(t *testing.T) {
	svc, _, metrics, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	res, err := svc.Login(ctx, "ALICE@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.TokenType != "bearer" || res.AccessToken == "" {
		t.Errorf("LoginResult = %+v", res)
	}
	if res.ExpiresAt.IsZero() {
		t.Error("ExpiresAt should be set")
	}

	got, err := svc.auth.ValidateToken(ctx, res.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("token subject = %q, want %q", got.ID, user.ID)
	}

	_, errWrong := svc.Login(ctx, "alice@example.com", "wrong-password")
	_, errUnknown := svc.Login(ctx, "nobody@example.com", "correct-horse")
	if !errors.Is(errWrong, domain.ErrInvalidCredentials) || !errors.Is(errUnknown, domain.ErrInvalidCredentials) {
		t.Errorf("errors = %v / %v, want ErrInvalidCredentials for both", errWrong, errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Error("wrong password and unknown email must be indistinguishable")
	}

	if metrics.count(metrics.logins, "success") != 1 || metrics.count(metrics.logins, "invalid") != 2 {
		t.Errorf("login metrics = %v", metrics.logins)
	}
}

func TestUserService_LoginThrottle(t *testing.T) {
	svc, _, metrics, clock := newUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for i := 0; i < DefaultLoginBurst; i++ {
		_, err := svc.Login(ctx, "alice@example.com", "wrong-password")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d error = %v", i+1, err)
		}
	}

	// Even the right password is refused once the burst is spent.
	_, err := svc.Login(ctx, "alice@example.com", "correct-horse")
	if !errors.Is(err, domain.ErrLoginThrottled) {
		t.Fatalf("Login() error = %v, want ErrLoginThrottled", err)
	}
	if domain.StatusFromCode(domain.GetErrorCode(err)) != 429 {
		t.Error("throttled login should map to 429")
	}

	// Other accounts are unaffected.
	if _, err := svc.Login(ctx, "bob@example.com", "whatever-pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("other account error = %v", err)
	}

	clock.now = clock.now.Add(DefaultLoginInterval)
	if _, err := svc.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Errorf("Login() after refill error = %v", err)
	}
	if metrics.count(metrics.logins, "throttled") != 1 {
		t.Errorf("throttled count = %d", metrics.count(metrics.logins, "throttled"))
	}
}

func TestUserService_MeAndSetAdmin(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	me, err := svc.Me(ctx, user.ID)
	if err != nil || me.Email != user.Email {
		t.Fatalf("Me() = %v, %v", me, err)
	}
	if _, err := svc.Me(ctx, ""); !errors.Is(err, domain.ErrMissingArgument) {
		t.Errorf("Me(\"\") error = %v", err)
	}
	if _, err := svc.Me(ctx, "usr-missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Me(missing) error = %v", err)
	}

	promoted, err := svc.SetAdmin(ctx, "Alice@Example.com", true)
	if err != nil {
		t.Fatalf("SetAdmin() error = %v", err)
	}
	if !promoted.IsAdmin {
		t.Error("SetAdmin(true) should grant admin")
	}
	me, _ = svc.Me(ctx, user.ID)
	if !me.IsAdmin {
		t.Error("admin flag not persisted")
	}

	if _, err := svc.SetAdmin(ctx, "nobody@example.com", true); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("SetAdmin(unknown) error = %v", err)
	}

	users, err := svc.List(ctx)
	if err != nil || len(users) != 1 {
		t.Errorf("List() = %d users, %v", len(users), err)
	}
}

func TestUserService_LoginContextCanceled(t *testing.T) {
	repo := newMockRepo()
	pool := NewCryptoPool(1)
	svc := NewUserService(repo, newTestAuth(repo), pool, nil, WithLogger(logger.Discard()))
	if _, err := svc.Register(context.Background(), "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Occupy the only slot so Login has to wait.
	release := make(chan struct{})
	started := make(chan struct{})
	go pool.Do(context.Background(), func() error {
		close(started)
		<-release
		return nil
	})
	<-started
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Login(ctx, "alice@example.com", "correct-horse")
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Errorf("Login() error = %v, want ErrServiceUnavailable", err)
	}
}
