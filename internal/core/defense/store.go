package defense

import (
	"context"
	"time"
)

// BlockEntry describes a blocklisted identity.
type BlockEntry struct {
	Identity  string    `json:"identity"`
	Reason    string    `json:"reason"`
	BlockedAt time.Time `json:"blocked_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"` // Zero means permanent
}

// Permanent reports whether the entry never expires.
func (e BlockEntry) Permanent() bool {
	return e.ExpiresAt.IsZero()
}

// Expired reports whether the entry has lapsed at now.
func (e BlockEntry) Expired(now time.Time) bool {
	return !e.Permanent() && !now.Before(e.ExpiresAt)
}

// StateStore holds the blocklist and per-identity rate windows.
// Implementations must be safe for concurrent use.
type StateStore interface {
	// IsBlocked reports whether id is currently blocklisted.
	IsBlocked(ctx context.Context, id string) (bool, error)

	// Block adds id to the blocklist. A ttl of zero blocks permanently.
	// Blocking an already blocked identity keeps the first entry; created
	// reports whether this call added the entry.
	Block(ctx context.Context, id, reason string, ttl time.Duration) (created bool, err error)

	// Unblock removes id from the blocklist. It returns
	// domain.ErrBlockNotFound when id is not blocked.
	Unblock(ctx context.Context, id string) error

	// Blocked lists current blocklist entries.
	Blocked(ctx context.Context) ([]BlockEntry, error)

	// Admit atomically prunes timestamps with now-t >= window from id's
	// window, denies if the remaining count is >= limit, and otherwise
	// records now and admits.
	Admit(ctx context.Context, id string, now time.Time, window time.Duration, limit int) (bool, error)

	// Reset clears all state.
	Reset(ctx context.Context) error
}
