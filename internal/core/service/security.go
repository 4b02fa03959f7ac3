package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/internal/infra/eventbus"
)

// SecurityService administers the defense blocklist.
type SecurityService struct {
	store     defense.StateStore
	publisher eventbus.Publisher
	metrics   Metrics
	logger    *slog.Logger
}

// NewSecurityService creates a SecurityService. A nil publisher drops
// events.
func NewSecurityService(store defense.StateStore, publisher eventbus.Publisher, opts ...Option) *SecurityService {
	o := applyOptions(opts)
	if publisher == nil {
		publisher = eventbus.Discard{}
	}
	return &SecurityService{
		store:     store,
		publisher: publisher,
		metrics:   o.metrics,
		logger:    o.logger,
	}
}

// Blocked lists the current blocklist.
func (s *SecurityService) Blocked(ctx context.Context) ([]defense.BlockEntry, error) {
	entries, err := s.store.Blocked(ctx)
	if err != nil {
		return nil, storageErr(err)
	}
	return entries, nil
}

// BlockedCount returns the blocklist size.
func (s *SecurityService) BlockedCount(ctx context.Context) (int, error) {
	entries, err := s.Blocked(ctx)
	return len(entries), err
}

// Unblock removes identity from the blocklist.
func (s *SecurityService) Unblock(ctx context.Context, identity string) error {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return domain.ErrMissingArgument.WithDetails("identity is required")
	}
	if err := s.store.Unblock(ctx, identity); err != nil {
		return storageErr(err)
	}
	s.logger.InfoContext(ctx, "identity unblocked", "identity", identity)
	return nil
}

// OnBlock is the pipeline's block listener. It logs the block and
// publishes a security.identity_blocked event.
func (s *SecurityService) OnBlock(ctx context.Context, entry defense.BlockEntry) {
	s.logger.WarnContext(ctx, "identity blocked",
		"identity", entry.Identity,
		"reason", entry.Reason,
		"permanent", entry.Permanent(),
	)
	err := s.publisher.Publish(ctx, eventbus.TopicIdentityBlocked, eventbus.IdentityBlocked{Entry: entry})
	s.metrics.RecordEvent(eventbus.TopicIdentityBlocked, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish block event", "identity", entry.Identity, "error", err)
	}
}
