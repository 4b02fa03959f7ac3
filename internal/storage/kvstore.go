package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/core/service"
)

var _ service.Repository = (*KVStore)(nil)

// Key prefixes.
const (
	prefixUser       = "user/"
	prefixUserEmail  = "user-email/"
	prefixCred       = "cred/"
	prefixCredUser   = "cred-user/"
	prefixTrade      = "trade/"
	prefixDeposit    = "deposit/"
	prefixWithdrawal = "withdrawal/"
)

// userRecord is the stored form of a user. domain.User hides the password
// hash from JSON, so it is carried separately here.
type userRecord struct {
	*domain.User
	PasswordHash string `json:"password_hash"`
}

// KVStore implements the service repositories on a KVEngine.
type KVStore struct {
	engine KVEngine
}

// NewKVStore creates a KVStore over engine. Closing the store closes the
// engine.
func NewKVStore(engine KVEngine) *KVStore {
	return &KVStore{engine: engine}
}

// Engine returns the underlying engine.
func (s *KVStore) Engine() KVEngine {
	return s.engine
}

// Close closes the underlying engine.
func (s *KVStore) Close() error {
	return s.engine.Close()
}

// ============================================================================
// Users
// ============================================================================

// CreateUser stores a user and its email index in one transaction.
func (s *KVStore) CreateUser(ctx context.Context, user *domain.User) error {
	email := domain.NormalizeEmail(user.Email)
	rec := userRecord{User: user.Clone(), PasswordHash: user.PasswordHash}
	rec.Email = email
	data, err := json.Marshal(rec)
	if err != nil {
		return storageErr(err)
	}

	return storageErr(s.engine.Update(ctx, func(txn KVTxn) error {
		if _, err := txn.Get([]byte(prefixUserEmail + email)); err == nil {
			return domain.ErrUserConflict
		} else if !errors.Is(err, ErrKeyNotFound) {
			return storageErr(err)
		}
		if _, err := txn.Get([]byte(prefixUser + user.ID)); err == nil {
			return domain.ErrUserConflict.WithDetails("duplicate id")
		}

		if err := txn.Set([]byte(prefixUser+user.ID), data); err != nil {
			return storageErr(err)
		}
		if err := txn.Set([]byte(prefixUserEmail+email), []byte(user.ID)); err != nil {
			return storageErr(err)
		}
		return nil
	}))
}

// GetUser retrieves a user by ID.
func (s *KVStore) GetUser(ctx context.Context, id string) (*domain.User, error) {
	data, err := s.engine.Get(ctx, []byte(prefixUser+id))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageErr(err)
	}
	return decodeUser(data)
}

// GetUserByEmail retrieves a user by email.
func (s *KVStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, err := s.engine.Get(ctx, []byte(prefixUserEmail+domain.NormalizeEmail(email)))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, storageErr(err)
	}
	return s.GetUser(ctx, string(id))
}

// UpdateUser replaces an existing user. The email cannot change.
func (s *KVStore) UpdateUser(ctx context.Context, user *domain.User) error {
	return storageErr(s.engine.Update(ctx, func(txn KVTxn) error {
		key := []byte(prefixUser + user.ID)
		data, err := txn.Get(key)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				return domain.ErrUserNotFound
			}
			return storageErr(err)
		}
		existing, err := decodeUser(data)
		if err != nil {
			return err
		}

		rec := userRecord{User: user.Clone(), PasswordHash: user.PasswordHash}
		rec.Email = existing.Email
		out, err := json.Marshal(rec)
		if err != nil {
			return storageErr(err)
		}
		return txn.Set(key, out)
	}))
}

// ListUsers returns all users ordered by ID.
func (s *KVStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	var decodeErr error
	err := s.engine.Scan(ctx, []byte(prefixUser), func(_, value []byte) bool {
		u, err := decodeUser(value)
		if err != nil {
			decodeErr = err
			return false
		}
		users = append(users, u)
		return true
	})
	if err != nil {
		return nil, storageErr(err)
	}
	return users, decodeErr
}

func decodeUser(data []byte) (*domain.User, error) {
	rec := userRecord{User: &domain.User{}}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, storageErr(err)
	}
	rec.User.PasswordHash = rec.PasswordHash
	return rec.User, nil
}

// ============================================================================
// Credentials
// ============================================================================

// CreateCredential stores a credential and its owner index.
func (s *KVStore) CreateCredential(ctx context.Context, cred *domain.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return storageErr(err)
	}

	return storageErr(s.engine.Update(ctx, func(txn KVTxn) error {
		if _, err := txn.Get([]byte(prefixCred + cred.ID)); err == nil {
			return domain.ErrCredentialValidation.WithDetails("duplicate id")
		}
		if err := txn.Set([]byte(prefixCred+cred.ID), data); err != nil {
			return storageErr(err)
		}
		return txn.Set(credUserKey(cred.UserID, cred.ID), nil)
	}))
}

// GetCredential retrieves a credential by ID.
func (s *KVStore) GetCredential(ctx context.Context, id string) (*domain.Credential, error) {
	data, err := s.engine.Get(ctx, []byte(prefixCred+id))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, domain.ErrCredentialNotFound
		}
		return nil, storageErr(err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, storageErr(err)
	}
	return &cred, nil
}

// ListCredentials returns a user's credentials ordered by ID.
func (s *KVStore) ListCredentials(ctx context.Context, userID string) ([]*domain.Credential, error) {
	prefix := credUserKey(userID, "")
	var ids []string
	err := s.engine.Scan(ctx, prefix, func(key, _ []byte) bool {
		ids = append(ids, string(key[len(prefix):]))
		return true
	})
	if err != nil {
		return nil, storageErr(err)
	}

	creds := make([]*domain.Credential, 0, len(ids))
	for _, id := range ids {
		cred, err := s.GetCredential(ctx, id)
		if errors.Is(err, domain.ErrCredentialNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, nil
}

// DeleteCredential removes a credential and its owner index.
func (s *KVStore) DeleteCredential(ctx context.Context, id string) error {
	return storageErr(s.engine.Update(ctx, func(txn KVTxn) error {
		data, err := txn.Get([]byte(prefixCred + id))
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				return domain.ErrCredentialNotFound
			}
			return storageErr(err)
		}
		var cred domain.Credential
		if err := json.Unmarshal(data, &cred); err != nil {
			return storageErr(err)
		}

		if err := txn.Delete([]byte(prefixCred + id)); err != nil {
			return storageErr(err)
		}
		return txn.Delete(credUserKey(cred.UserID, id))
	}))
}

func credUserKey(userID, id string) []byte {
	return []byte(prefixCredUser + userID + "/" + id)
}

// ============================================================================
// Ledger
// ============================================================================

// CreateTrade records a trade.
func (s *KVStore) CreateTrade(ctx context.Context, trade *domain.Trade) error {
	return putNew(ctx, s.engine, ownedKey(prefixTrade, trade.UserID, trade.ID), trade)
}

// ListTrades returns a user's trades, newest first.
func (s *KVStore) ListTrades(ctx context.Context, userID string) ([]*domain.Trade, error) {
	return listOwned[domain.Trade](ctx, s.engine, ownedKey(prefixTrade, userID, ""))
}

// CreateDeposit records a deposit.
func (s *KVStore) CreateDeposit(ctx context.Context, d *domain.Deposit) error {
	return putNew(ctx, s.engine, ownedKey(prefixDeposit, d.UserID, d.ID), d)
}

// ListDeposits returns a user's deposits, newest first.
func (s *KVStore) ListDeposits(ctx context.Context, userID string) ([]*domain.Deposit, error) {
	return listOwned[domain.Deposit](ctx, s.engine, ownedKey(prefixDeposit, userID, ""))
}

// CreateWithdrawal records a withdrawal.
func (s *KVStore) CreateWithdrawal(ctx context.Context, w *domain.Withdrawal) error {
	return putNew(ctx, s.engine, ownedKey(prefixWithdrawal, w.UserID, w.ID), w)
}

// ListWithdrawals returns a user's withdrawals, newest first.
func (s *KVStore) ListWithdrawals(ctx context.Context, userID string) ([]*domain.Withdrawal, error) {
	return listOwned[domain.Withdrawal](ctx, s.engine, ownedKey(prefixWithdrawal, userID, ""))
}

func ownedKey(prefix, userID, id string) []byte {
	return []byte(prefix + userID + "/" + id)
}

// putNew stores v under key unless the key exists.
func putNew(ctx context.Context, engine KVEngine, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return storageErr(err)
	}
	return storageErr(engine.Update(ctx, func(txn KVTxn) error {
		if _, err := txn.Get(key); err == nil {
			return domain.ErrTradeValidation.WithDetails("duplicate id")
		}
		return txn.Set(key, data)
	}))
}

// listOwned decodes every value under prefix and returns them newest first.
func listOwned[T any](ctx context.Context, engine KVEngine, prefix []byte) ([]*T, error) {
	var out []*T
	var decodeErr error
	err := engine.Scan(ctx, prefix, func(_, value []byte) bool {
		v := new(T)
		if err := json.Unmarshal(value, v); err != nil {
			decodeErr = err
			return false
		}
		out = append(out, v)
		return true
	})
	if err != nil {
		return nil, storageErr(err)
	}
	if decodeErr != nil {
		return nil, storageErr(decodeErr)
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrStorageError.WithCause(fmt.Errorf("kv: %w", err))
}
