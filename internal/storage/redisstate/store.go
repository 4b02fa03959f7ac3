// Package redisstate implements defense.StateStore on Redis so several
// gateway processes share one blocklist and one set of rate windows.
//
// Blocklist entries are JSON strings under {prefix}blocked:{identity} with
// an optional TTL. Rate windows are sorted sets under {prefix}rate:{identity}
// scored by request time in milliseconds; a Lua script prunes, counts and
// appends in one atomic step.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// DefaultPrefix is the default key prefix.
const DefaultPrefix = "tradegate:"

var _ defense.StateStore = (*Store)(nil)

// admitScript removes timestamps with score <= now-window, denies when the
// remaining count reaches the limit and otherwise records now.
var admitScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) >= limit then
  return 0
end
redis.call('ZADD', key, now, ARGV[4])
redis.call('PEXPIRE', key, window)
return 1
`)

// Store is a Redis-backed defense.StateStore.
type Store struct {
	client redis.UniversalClient
	prefix string
	clock  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithClock sets the clock used for block timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) {
		s.clock = clock
	}
}

// New creates a Store over an existing client.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: DefaultPrefix,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect parses a redis:// URL, creates a client and pings it.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func (s *Store) blockKey(id string) string { return s.prefix + "blocked:" + id }
func (s *Store) rateKey(id string) string  { return s.prefix + "rate:" + id }

// IsBlocked reports whether id has a live blocklist key.
func (s *Store) IsBlocked(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.blockKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

// Block stores an entry for id unless one exists. A zero ttl never expires.
func (s *Store) Block(ctx context.Context, id, reason string, ttl time.Duration) (bool, error) {
	now := s.clock()
	entry := defense.BlockEntry{Identity: id, Reason: reason, BlockedAt: now}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return false, err
	}

	created, err := s.client.SetNX(ctx, s.blockKey(id), data, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return created, nil
}

// Unblock deletes id's blocklist key.
func (s *Store) Unblock(ctx context.Context, id string) error {
	n, err := s.client.Del(ctx, s.blockKey(id)).Result()
	if err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	if n == 0 {
		return domain.ErrBlockNotFound
	}
	return nil
}

// Blocked lists blocklist entries, oldest first.
func (s *Store) Blocked(ctx context.Context) ([]defense.BlockEntry, error) {
	keys, err := s.scan(ctx, s.blockKey("*"))
	if err != nil {
		return nil, err
	}

	entries := make([]defense.BlockEntry, 0, len(keys))
	for _, key := range keys {
		data, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // expired between SCAN and GET
		}
		if err != nil {
			return nil, fmt.Errorf("redis get: %w", err)
		}
		var e defense.BlockEntry
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode block entry %s: %w", key, err)
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].BlockedAt.Equal(entries[j].BlockedAt) {
			return entries[i].BlockedAt.Before(entries[j].BlockedAt)
		}
		return entries[i].Identity < entries[j].Identity
	})
	return entries, nil
}

// Admit runs the window script for id.
func (s *Store) Admit(ctx context.Context, id string, now time.Time, window time.Duration, limit int) (bool, error) {
	member := strconv.FormatInt(now.UnixNano(), 10) + "-" + uuid.NewString()
	res, err := admitScript.Run(ctx, s.client,
		[]string{s.rateKey(id)},
		now.UnixMilli(), window.Milliseconds(), limit, member,
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis admit: %w", err)
	}
	return res == 1, nil
}

// Reset deletes every key under the store's prefix.
func (s *Store) Reset(ctx context.Context) error {
	for _, pattern := range []string{s.blockKey("*"), s.rateKey("*")} {
		keys, err := s.scan(ctx, pattern)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			continue
		}
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

func (s *Store) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan: %w", err)
	}
	return keys, nil
}
