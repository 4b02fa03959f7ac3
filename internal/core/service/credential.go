package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// Sealer encrypts and decrypts credential material. *vault.Vault
// implements it.
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(blob string) (string, error)
}

// CredentialView is the client-facing form of a credential. It never
// carries plaintext or ciphertext.
type CredentialView struct {
	ID        string    `json:"id"`
	Exchange  string    `json:"exchange"`
	KeyHint   string    `json:"key_hint"`
	CreatedAt time.Time `json:"created_at"`
}

func newCredentialView(c *domain.Credential) *CredentialView {
	return &CredentialView{
		ID:        c.ID,
		Exchange:  c.Exchange,
		KeyHint:   c.KeyHint,
		CreatedAt: time.UnixMilli(c.CreatedAt).UTC(),
	}
}

// CredentialService stores exchange API keys sealed by the vault.
type CredentialService struct {
	repo    CredentialRepository
	sealer  Sealer
	pool    *CryptoPool
	metrics Metrics
	logger  *slog.Logger
}

// NewCredentialService creates a CredentialService.
func NewCredentialService(repo CredentialRepository, sealer Sealer, pool *CryptoPool, opts ...Option) *CredentialService {
	o := applyOptions(opts)
	if pool == nil {
		pool = NewCryptoPool(0)
	}
	return &CredentialService{
		repo:    repo,
		sealer:  sealer,
		pool:    pool,
		metrics: o.metrics,
		logger:  o.logger,
	}
}

// Create seals key and secret concurrently and stores the blobs.
func (s *CredentialService) Create(ctx context.Context, userID, exchange, key, secret string) (*CredentialView, error) {
	if userID == "" {
		return nil, domain.ErrMissingArgument.WithDetails("user id is required")
	}
	if err := domain.ValidateCredentialInput(exchange, key, secret); err != nil {
		return nil, err
	}

	var sealedKey, sealedSecret string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.seal(gctx, key, &sealedKey)
	})
	g.Go(func() error {
		return s.seal(gctx, secret, &sealedSecret)
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "credential encryption failed", "user_id", userID, "error", err)
		return nil, domain.ErrCredentialUnavailable.WithCause(err)
	}

	id, err := domain.NewID(domain.CredentialIDPrefix)
	if err != nil {
		return nil, err
	}
	cred := &domain.Credential{
		ID:              id,
		UserID:          userID,
		Exchange:        domain.NormalizeExchange(exchange),
		EncryptedKey:    sealedKey,
		EncryptedSecret: sealedSecret,
		KeyHint:         domain.KeyHint(key),
		CreatedAt:       time.Now().UnixMilli(),
	}
	if err := s.repo.CreateCredential(ctx, cred); err != nil {
		return nil, storageErr(err)
	}

	s.logger.InfoContext(ctx, "credential stored", "user_id", userID, "credential_id", id, "exchange", cred.Exchange)
	return newCredentialView(cred), nil
}

// List returns the caller's credentials.
func (s *CredentialService) List(ctx context.Context, userID string) ([]*CredentialView, error) {
	creds, err := s.repo.ListCredentials(ctx, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	views := make([]*CredentialView, 0, len(creds))
	for _, c := range creds {
		views = append(views, newCredentialView(c))
	}
	return views, nil
}

// Delete removes one of the caller's credentials. Credentials owned by
// other users are reported as not found.
func (s *CredentialService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteCredential(ctx, id); err != nil {
		return storageErr(err)
	}
	s.logger.InfoContext(ctx, "credential deleted", "user_id", userID, "credential_id", id)
	return nil
}

// Reveal decrypts a credential for the exchange integration. Its caller is
// the order router that consumes order.requested events and signs exchange
// requests; no HTTP route exposes it. The result must never be logged or
// returned to clients.
func (s *CredentialService) Reveal(ctx context.Context, userID, id string) (key, secret string, err error) {
	cred, err := s.owned(ctx, userID, id)
	if err != nil {
		return "", "", err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.open(gctx, cred.EncryptedKey, &key)
	})
	g.Go(func() error {
		return s.open(gctx, cred.EncryptedSecret, &secret)
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "credential decryption failed", "credential_id", id, "error", err)
		return "", "", domain.ErrCredentialUnavailable
	}
	return key, secret, nil
}

func (s *CredentialService) owned(ctx context.Context, userID, id string) (*domain.Credential, error) {
	cred, err := s.repo.GetCredential(ctx, id)
	if errors.Is(err, domain.ErrCredentialNotFound) {
		return nil, domain.ErrCredentialNotFound
	}
	if err != nil {
		return nil, storageErr(err)
	}
	if cred.UserID != userID {
		return nil, domain.ErrCredentialNotFound
	}
	return cred, nil
}

func (s *CredentialService) seal(ctx context.Context, plaintext string, out *string) error {
	return s.pool.Do(ctx, func() error {
		blob, err := s.sealer.Encrypt(plaintext)
		s.metrics.RecordVaultOp("encrypt", err)
		*out = blob
		return err
	})
}

func (s *CredentialService) open(ctx context.Context, blob string, out *string) error {
	return s.pool.Do(ctx, func() error {
		plain, err := s.sealer.Decrypt(blob)
		s.metrics.RecordVaultOp("decrypt", err)
		*out = plain
		return err
	})
}
