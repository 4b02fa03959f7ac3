package service

import (
	"context"

	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// UserRepository defines the storage interface for user accounts.
type UserRepository interface {
	// CreateUser stores a new user. Returns domain.ErrUserConflict when the
	// email is already registered.
	CreateUser(ctx context.Context, user *domain.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*domain.User, error)

	// GetUserByEmail retrieves a user by normalized email.
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// UpdateUser replaces an existing user.
	UpdateUser(ctx context.Context, user *domain.User) error

	// ListUsers returns all users ordered by ID.
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// CredentialRepository defines the storage interface for exchange
// credentials. Blobs are stored verbatim.
type CredentialRepository interface {
	// CreateCredential stores a new credential.
	CreateCredential(ctx context.Context, cred *domain.Credential) error

	// GetCredential retrieves a credential by ID.
	GetCredential(ctx context.Context, id string) (*domain.Credential, error)

	// ListCredentials returns a user's credentials ordered by ID.
	ListCredentials(ctx context.Context, userID string) ([]*domain.Credential, error)

	// DeleteCredential removes a credential by ID.
	DeleteCredential(ctx context.Context, id string) error
}

// LedgerRepository defines the storage interface for trades and transfers.
type LedgerRepository interface {
	// CreateTrade records a trade.
	CreateTrade(ctx context.Context, trade *domain.Trade) error

	// ListTrades returns a user's trades, newest first.
	ListTrades(ctx context.Context, userID string) ([]*domain.Trade, error)

	// CreateDeposit records a deposit.
	CreateDeposit(ctx context.Context, d *domain.Deposit) error

	// ListDeposits returns a user's deposits, newest first.
	ListDeposits(ctx context.Context, userID string) ([]*domain.Deposit, error)

	// CreateWithdrawal records a withdrawal.
	CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error

	// ListWithdrawals returns a user's withdrawals, newest first.
	ListWithdrawals(ctx context.Context, userID string) ([]*domain.Withdrawal, error)
}

// Repository combines every storage interface the services need.
type Repository interface {
	UserRepository
	CredentialRepository
	LedgerRepository

	// Close releases the underlying storage.
	Close() error
}
