package memory

import (
	"context"
	"sort"
	"time"

	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/domain"
	"github.com/yndnr/tradegate-go/pkg/cmap"
)

var _ defense.StateStore = (*DefenseStore)(nil)

// DefenseStore keeps the blocklist and rate windows in process memory.
type DefenseStore struct {
	blocked *cmap.Map[string, defense.BlockEntry]
	windows *cmap.Map[string, []time.Time]
	clock   func() time.Time
}

// DefenseOption configures a DefenseStore.
type DefenseOption func(*DefenseStore)

// WithClock sets the clock used for block timestamps and expiry.
func WithClock(clock func() time.Time) DefenseOption {
	return func(s *DefenseStore) {
		s.clock = clock
	}
}

// NewDefenseStore creates an empty DefenseStore.
func NewDefenseStore(opts ...DefenseOption) *DefenseStore {
	s := &DefenseStore{
		blocked: cmap.New[string, defense.BlockEntry](),
		windows: cmap.New[string, []time.Time](),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsBlocked reports whether id is blocked. Expired entries are dropped.
func (s *DefenseStore) IsBlocked(_ context.Context, id string) (bool, error) {
	now := s.clock()
	_, ok := s.blocked.Compute(id, func(e defense.BlockEntry, exists bool) (defense.BlockEntry, bool) {
		return e, exists && !e.Expired(now)
	})
	return ok, nil
}

// Block adds id to the blocklist unless it is already blocked.
func (s *DefenseStore) Block(_ context.Context, id, reason string, ttl time.Duration) (bool, error) {
	now := s.clock()
	created := false
	s.blocked.Compute(id, func(e defense.BlockEntry, exists bool) (defense.BlockEntry, bool) {
		if exists && !e.Expired(now) {
			return e, true
		}
		created = true
		e = defense.BlockEntry{Identity: id, Reason: reason, BlockedAt: now}
		if ttl > 0 {
			e.ExpiresAt = now.Add(ttl)
		}
		return e, true
	})
	return created, nil
}

// Unblock removes id from the blocklist.
func (s *DefenseStore) Unblock(_ context.Context, id string) error {
	e, ok := s.blocked.Pop(id)
	if !ok || e.Expired(s.clock()) {
		return domain.ErrBlockNotFound
	}
	return nil
}

// Blocked lists active entries, oldest first.
func (s *DefenseStore) Blocked(_ context.Context) ([]defense.BlockEntry, error) {
	now := s.clock()
	out := make([]defense.BlockEntry, 0, s.blocked.Count())
	s.blocked.Range(func(_ string, e defense.BlockEntry) bool {
		if !e.Expired(now) {
			out = append(out, e)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BlockedAt.Equal(out[j].BlockedAt) {
			return out[i].BlockedAt.Before(out[j].BlockedAt)
		}
		return out[i].Identity < out[j].Identity
	})
	return out, nil
}

// Admit prunes, counts and appends under the shard lock owning id.
func (s *DefenseStore) Admit(_ context.Context, id string, now time.Time, window time.Duration, limit int) (bool, error) {
	admitted := false
	s.windows.Compute(id, func(stamps []time.Time, _ bool) ([]time.Time, bool) {
		kept := stamps[:0]
		for _, t := range stamps {
			if now.Sub(t) < window {
				kept = append(kept, t)
			}
		}
		if len(kept) < limit {
			kept = append(kept, now)
			admitted = true
		}
		return kept, len(kept) > 0
	})
	return admitted, nil
}

// Reset clears the blocklist and every rate window.
func (s *DefenseStore) Reset(_ context.Context) error {
	s.blocked.Clear()
	s.windows.Clear()
	return nil
}

// Sweep drops rate windows whose newest request is older than window and
// block entries that have expired. It returns the number of removed keys.
func (s *DefenseStore) Sweep(_ context.Context, now time.Time, window time.Duration) (int, error) {
	removed := s.windows.DeleteIf(func(_ string, stamps []time.Time) bool {
		return len(stamps) == 0 || now.Sub(stamps[len(stamps)-1]) >= window
	})
	removed += s.blocked.DeleteIf(func(_ string, e defense.BlockEntry) bool {
		return e.Expired(now)
	})
	return removed, nil
}

// Tracked returns the number of identities with a live rate window.
func (s *DefenseStore) Tracked() int {
	return s.windows.Count()
}
