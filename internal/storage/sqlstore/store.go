package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/core/service"
)

var _ service.Repository = (*Store)(nil)

// Store implements the service repositories on a SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at path.
func New(ctx context.Context, logger *slog.Logger, path string) (*Store, error) {
	db, err := Open(ctx, logger, path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================================================
// Users
// ============================================================================

// CreateUser inserts a user.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, domain.NormalizeEmail(u.Email), u.PasswordHash, u.IsAdmin, u.CreatedAt)
	if isConstraint(err) {
		return domain.ErrUserConflict
	}
	return wrap(err)
}

const userColumns = `id, email, password_hash, is_admin, created_at`

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, domain.NormalizeEmail(email))
	return scanUser(row)
}

// UpdateUser updates the mutable fields of a user.
func (s *Store) UpdateUser(ctx context.Context, u *domain.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, is_admin = ? WHERE id = ?`,
		u.PasswordHash, u.IsAdmin, u.ID)
	if err != nil {
		return wrap(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// ListUsers returns all users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, wrap(rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, wrap(err)
	}
	return &u, nil
}

// ============================================================================
// Credentials
// ============================================================================

const credentialColumns = `id, user_id, exchange, encrypted_key, encrypted_secret, key_hint, created_at`

// CreateCredential inserts a credential.
func (s *Store) CreateCredential(ctx context.Context, c *domain.Credential) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO credentials (`+credentialColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Exchange, c.EncryptedKey, c.EncryptedSecret, c.KeyHint, c.CreatedAt)
	if isConstraint(err) {
		return domain.ErrCredentialValidation.WithDetails("duplicate id or unknown user")
	}
	return wrap(err)
}

// GetCredential retrieves a credential by ID.
func (s *Store) GetCredential(ctx context.Context, id string) (*domain.Credential, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+credentialColumns+` FROM credentials WHERE id = ?`, id)
	return scanCredential(row)
}

// ListCredentials returns a user's credentials ordered by ID.
func (s *Store) ListCredentials(ctx context.Context, userID string) ([]*domain.Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM credentials WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	creds := []*domain.Credential{}
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, wrap(rows.Err())
}

// DeleteCredential removes a credential.
func (s *Store) DeleteCredential(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return wrap(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrCredentialNotFound
	}
	return nil
}

func scanCredential(row scanner) (*domain.Credential, error) {
	var c domain.Credential
	err := row.Scan(&c.ID, &c.UserID, &c.Exchange, &c.EncryptedKey, &c.EncryptedSecret, &c.KeyHint, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, wrap(err)
	}
	return &c, nil
}

// ============================================================================
// Ledger
// ============================================================================

const tradeColumns = `id, user_id, symbol, side, quantity, price, exchange, status, source, created_at`

// CreateTrade inserts a trade.
func (s *Store) CreateTrade(ctx context.Context, t *domain.Trade) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trades (`+tradeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Symbol, string(t.Side), t.Quantity, t.Price, t.Exchange, string(t.Status), t.Source, t.CreatedAt)
	if isConstraint(err) {
		return domain.ErrTradeValidation.WithDetails("duplicate id")
	}
	return wrap(err)
}

// ListTrades returns a user's trades, newest first.
func (s *Store) ListTrades(ctx context.Context, userID string) ([]*domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	trades := []*domain.Trade{}
	for rows.Next() {
		var t domain.Trade
		var side, status string
		if err := rows.Scan(&t.ID, &t.UserID, &t.Symbol, &side, &t.Quantity, &t.Price,
			&t.Exchange, &status, &t.Source, &t.CreatedAt); err != nil {
			return nil, wrap(err)
		}
		t.Side = domain.Side(side)
		t.Status = domain.TradeStatus(status)
		trades = append(trades, &t)
	}
	return trades, wrap(rows.Err())
}

// CreateDeposit inserts a deposit.
func (s *Store) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deposits (id, user_id, asset, amount, exchange, tx_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Asset, d.Amount, d.Exchange, d.TxID, d.CreatedAt)
	if isConstraint(err) {
		return domain.ErrTradeValidation.WithDetails("duplicate id")
	}
	return wrap(err)
}

// ListDeposits returns a user's deposits, newest first.
func (s *Store) ListDeposits(ctx context.Context, userID string) ([]*domain.Deposit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, asset, amount, exchange, tx_id, created_at FROM deposits WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	out := []*domain.Deposit{}
	for rows.Next() {
		var d domain.Deposit
		if err := rows.Scan(&d.ID, &d.UserID, &d.Asset, &d.Amount, &d.Exchange, &d.TxID, &d.CreatedAt); err != nil {
			return nil, wrap(err)
		}
		out = append(out, &d)
	}
	return out, wrap(rows.Err())
}

// CreateWithdrawal inserts a withdrawal.
func (s *Store) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO withdrawals (id, user_id, asset, amount, exchange, address, tx_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Asset, w.Amount, w.Exchange, w.Address, w.TxID, w.CreatedAt)
	if isConstraint(err) {
		return domain.ErrTradeValidation.WithDetails("duplicate id")
	}
	return wrap(err)
}

// ListWithdrawals returns a user's withdrawals, newest first.
func (s *Store) ListWithdrawals(ctx context.Context, userID string) ([]*domain.Withdrawal, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, asset, amount, exchange, address, tx_id, created_at FROM withdrawals WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, wrap(err)
	}
	defer rows.Close()

	out := []*domain.Withdrawal{}
	for rows.Next() {
		var w domain.Withdrawal
		if err := rows.Scan(&w.ID, &w.UserID, &w.Asset, &w.Amount, &w.Exchange, &w.Address, &w.TxID, &w.CreatedAt); err != nil {
			return nil, wrap(err)
		}
		out = append(out, &w)
	}
	return out, wrap(rows.Err())
}

// isConstraint reports whether err is a SQLite constraint violation.
func isConstraint(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return domain.ErrStorageError.WithCause(fmt.Errorf("sqlite: %w", err))
}
