package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/core/service"
	"github.com/yndnr/tradegate-go/pkg/cmap"
)

var _ service.Repository = (*Store)(nil)

// Store provides in-memory repositories with secondary indexes.
type Store struct {
	// Primary indexes
	users       *cmap.Map[string, *domain.User]
	credentials *cmap.Map[string, *domain.Credential]
	trades      *cmap.Map[string, *domain.Trade]
	deposits    *cmap.Map[string, domain.Deposit]
	withdrawals *cmap.Map[string, domain.Withdrawal]

	// Secondary indexes
	emails          *cmap.Map[string, string] // email -> user ID
	userCredentials *OwnerIndex
	userTrades      *OwnerIndex
	userDeposits    *OwnerIndex
	userWithdrawals *OwnerIndex

	// Global lock for operations requiring atomicity across indexes
	mu sync.RWMutex
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		users:           cmap.New[string, *domain.User](),
		credentials:     cmap.New[string, *domain.Credential](),
		trades:          cmap.New[string, *domain.Trade](),
		deposits:        cmap.New[string, domain.Deposit](),
		withdrawals:     cmap.New[string, domain.Withdrawal](),
		emails:          cmap.New[string, string](),
		userCredentials: NewOwnerIndex(),
		userTrades:      NewOwnerIndex(),
		userDeposits:    NewOwnerIndex(),
		userWithdrawals: NewOwnerIndex(),
	}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// ============================================================================
// Users
// ============================================================================

// CreateUser stores a new user.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := domain.NormalizeEmail(user.Email)
	if s.emails.Has(email) {
		return domain.ErrUserConflict
	}
	if s.users.Has(user.ID) {
		return domain.ErrUserConflict.WithDetails("duplicate id")
	}

	clone := user.Clone()
	clone.Email = email
	s.users.Set(user.ID, clone)
	s.emails.Set(email, user.ID)
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	user, ok := s.users.Get(id)
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user.Clone(), nil
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, ok := s.emails.Get(domain.NormalizeEmail(email))
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}

// UpdateUser replaces an existing user. The email cannot change.
func (s *Store) UpdateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users.Get(user.ID)
	if !ok {
		return domain.ErrUserNotFound
	}

	clone := user.Clone()
	clone.Email = existing.Email
	s.users.Set(user.ID, clone)
	return nil
}

// ListUsers returns all users ordered by ID.
func (s *Store) ListUsers(_ context.Context) ([]*domain.User, error) {
	users := make([]*domain.User, 0, s.users.Count())
	s.users.Range(func(_ string, u *domain.User) bool {
		users = append(users, u.Clone())
		return true
	})
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// ============================================================================
// Credentials
// ============================================================================

// CreateCredential stores a new credential.
func (s *Store) CreateCredential(_ context.Context, cred *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.credentials.SetIfAbsent(cred.ID, cred.Clone()) {
		return domain.ErrCredentialValidation.WithDetails("duplicate id")
	}
	s.userCredentials.Add(cred.UserID, cred.ID)
	return nil
}

// GetCredential retrieves a credential by ID.
func (s *Store) GetCredential(_ context.Context, id string) (*domain.Credential, error) {
	cred, ok := s.credentials.Get(id)
	if !ok {
		return nil, domain.ErrCredentialNotFound
	}
	return cred.Clone(), nil
}

// ListCredentials returns a user's credentials ordered by ID.
func (s *Store) ListCredentials(_ context.Context, userID string) ([]*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.userCredentials.Get(userID)
	out := make([]*domain.Credential, 0, len(ids))
	for _, id := range ids {
		if cred, ok := s.credentials.Get(id); ok {
			out = append(out, cred.Clone())
		}
	}
	return out, nil
}

// DeleteCredential removes a credential.
func (s *Store) DeleteCredential(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.credentials.Pop(id)
	if !ok {
		return domain.ErrCredentialNotFound
	}
	s.userCredentials.Remove(cred.UserID, id)
	return nil
}

// ============================================================================
// Ledger
// ============================================================================

// CreateTrade records a trade.
func (s *Store) CreateTrade(_ context.Context, trade *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.trades.SetIfAbsent(trade.ID, trade.Clone()) {
		return domain.ErrTradeValidation.WithDetails("duplicate id")
	}
	s.userTrades.Add(trade.UserID, trade.ID)
	return nil
}

// ListTrades returns a user's trades, newest first.
func (s *Store) ListTrades(_ context.Context, userID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.userTrades.Get(userID)
	out := make([]*domain.Trade, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if t, ok := s.trades.Get(ids[i]); ok {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

// CreateDeposit records a deposit.
func (s *Store) CreateDeposit(_ context.Context, d *domain.Deposit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deposits.SetIfAbsent(d.ID, *d) {
		return domain.ErrTradeValidation.WithDetails("duplicate id")
	}
	s.userDeposits.Add(d.UserID, d.ID)
	return nil
}

// ListDeposits returns a user's deposits, newest first.
func (s *Store) ListDeposits(_ context.Context, userID string) ([]*domain.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.userDeposits.Get(userID)
	out := make([]*domain.Deposit, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if d, ok := s.deposits.Get(ids[i]); ok {
			out = append(out, &d)
		}
	}
	return out, nil
}

// CreateWithdrawal records a withdrawal.
func (s *Store) CreateWithdrawal(_ context.Context, w *domain.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.withdrawals.SetIfAbsent(w.ID, *w) {
		return domain.ErrTradeValidation.WithDetails("duplicate id")
	}
	s.userWithdrawals.Add(w.UserID, w.ID)
	return nil
}

// ListWithdrawals returns a user's withdrawals, newest first.
func (s *Store) ListWithdrawals(_ context.Context, userID string) ([]*domain.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.userWithdrawals.Get(userID)
	out := make([]*domain.Withdrawal, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		if w, ok := s.withdrawals.Get(ids[i]); ok {
			out = append(out, &w)
		}
	}
	return out, nil
}
