package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/yndnr/tradegate-go/internal/core/domain"
)

func newTestUser(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email, "$2a$04$hash")
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}
	return u
}

func TestStore_Users(t *testing.T) {
	s := New()
	ctx := context.Background()

	u := newTestUser(t, "Alice@Example.com")
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	dup := newTestUser(t, "alice@example.com")
	if err := s.CreateUser(ctx, dup); !errors.Is(err, domain.ErrUserConflict) {
		t.Errorf("CreateUser(duplicate email) error = %v, want ErrUserConflict", err)
	}

	got, err := s.GetUserByEmail(ctx, " ALICE@example.com ")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if got.ID != u.ID || got.Email != "alice@example.com" {
		t.Errorf("GetUserByEmail() = %+v", got)
	}

	// Mutating the returned copy must not affect the store.
	got.IsAdmin = true
	again, _ := s.GetUser(ctx, u.ID)
	if again.IsAdmin {
		t.Error("store returned a shared pointer")
	}

	got.Email = "changed@example.com"
	if err := s.UpdateUser(ctx, got); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	again, _ = s.GetUser(ctx, u.ID)
	if !again.IsAdmin || again.Email != "alice@example.com" {
		t.Errorf("UpdateUser() result = %+v, want admin with unchanged email", again)
	}

	if _, err := s.GetUser(ctx, "usr-missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("GetUser(missing) error = %v", err)
	}
	if err := s.UpdateUser(ctx, &domain.User{ID: "usr-missing"}); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("UpdateUser(missing) error = %v", err)
	}

	users, _ := s.ListUsers(ctx)
	if len(users) != 1 {
		t.Errorf("ListUsers() len = %d, want 1", len(users))
	}
}

func TestStore_Credentials(t *testing.T) {
	s := New()
	ctx := context.Background()

	c1 := &domain.Credential{ID: "crd-1", UserID: "usr-1", Exchange: "binance", EncryptedKey: "k", EncryptedSecret: "s"}
	c2 := &domain.Credential{ID: "crd-2", UserID: "usr-1", Exchange: "okx"}
	c3 := &domain.Credential{ID: "crd-3", UserID: "usr-2", Exchange: "kraken"}
	for _, c := range []*domain.Credential{c1, c2, c3} {
		if err := s.CreateCredential(ctx, c); err != nil {
			t.Fatalf("CreateCredential() error = %v", err)
		}
	}

	list, _ := s.ListCredentials(ctx, "usr-1")
	if len(list) != 2 || list[0].ID != "crd-1" {
		t.Errorf("ListCredentials(usr-1) = %v", list)
	}

	got, err := s.GetCredential(ctx, "crd-1")
	if err != nil || got.EncryptedKey != "k" || got.EncryptedSecret != "s" {
		t.Errorf("GetCredential() = (%+v, %v)", got, err)
	}

	if err := s.DeleteCredential(ctx, "crd-1"); err != nil {
		t.Fatalf("DeleteCredential() error = %v", err)
	}
	if err := s.DeleteCredential(ctx, "crd-1"); !errors.Is(err, domain.ErrCredentialNotFound) {
		t.Errorf("DeleteCredential(again) error = %v", err)
	}
	list, _ = s.ListCredentials(ctx, "usr-1")
	if len(list) != 1 {
		t.Errorf("ListCredentials() after delete len = %d, want 1", len(list))
	}
}

func TestStore_Ledger(t *testing.T) {
	s := New()
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		tr, err := domain.NewTrade("usr-1", "btcusdt", domain.SideBuy, decimal.RequireFromString("0.5"), "binance", domain.SourceManual)
		if err != nil {
			t.Fatalf("NewTrade() error = %v", err)
		}
		if err := s.CreateTrade(ctx, tr); err != nil {
			t.Fatalf("CreateTrade() error = %v", err)
		}
		ids = append(ids, tr.ID)
	}

	trades, _ := s.ListTrades(ctx, "usr-1")
	if len(trades) != 3 || trades[0].ID != ids[2] {
		t.Errorf("ListTrades() should return newest first")
	}
	if other, _ := s.ListTrades(ctx, "usr-2"); len(other) != 0 {
		t.Errorf("ListTrades(usr-2) len = %d, want 0", len(other))
	}

	d, _ := domain.NewDeposit("usr-1", "usdt", decimal.NewFromInt(100), "binance", "0xabc")
	w, _ := domain.NewWithdrawal("usr-1", "usdt", decimal.NewFromInt(40), "binance", "addr", "")
	if err := s.CreateDeposit(ctx, d); err != nil {
		t.Fatalf("CreateDeposit() error = %v", err)
	}
	if err := s.CreateWithdrawal(ctx, w); err != nil {
		t.Fatalf("CreateWithdrawal() error = %v", err)
	}

	deps, _ := s.ListDeposits(ctx, "usr-1")
	if len(deps) != 1 || !deps[0].Amount.Equal(decimal.NewFromInt(100)) || deps[0].Asset != "USDT" {
		t.Errorf("ListDeposits() = %+v", deps)
	}
	wds, _ := s.ListWithdrawals(ctx, "usr-1")
	if len(wds) != 1 || wds[0].Address != "addr" {
		t.Errorf("ListWithdrawals() = %+v", wds)
	}
}
