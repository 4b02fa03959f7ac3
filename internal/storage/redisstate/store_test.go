package redisstate

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// newTestStore connects to TRADEGATE_TEST_REDIS_URL and isolates the test
// under a random prefix.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TRADEGATE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TRADEGATE_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	client, err := Connect(ctx, url)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	s := New(client, WithPrefix("tradegate-test:"+uuid.NewString()+":"))
	t.Cleanup(func() {
		s.Reset(context.Background())
		client.Close()
	})
	return s
}

func TestStore_Admit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	t0 := time.UnixMilli(1700000000000)

	for i := 0; i < 3; i++ {
		ok, err := s.Admit(ctx, "ip", t0.Add(time.Duration(i)*time.Second), time.Minute, 3)
		if err != nil || !ok {
			t.Fatalf("Admit(%d) = (%v, %v)", i, ok, err)
		}
	}
	if ok, _ := s.Admit(ctx, "ip", t0.Add(30*time.Second), time.Minute, 3); ok {
		t.Error("fourth request should be denied")
	}
	if ok, _ := s.Admit(ctx, "ip", t0.Add(time.Minute), time.Minute, 3); !ok {
		t.Error("request at t0+window should be admitted")
	}
}

func TestStore_AdmitConcurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := s.Admit(ctx, "ip", now, time.Minute, 100); err == nil && ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 100 {
		t.Errorf("admitted = %d, want 100", admitted.Load())
	}
}

func TestStore_Blocklist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if created, err := s.Block(ctx, "1.2.3.4", "first", 0); err != nil || !created {
		t.Fatalf("Block() = (%v, %v), want created", created, err)
	}
	if created, _ := s.Block(ctx, "1.2.3.4", "second", 0); created {
		t.Error("repeat Block() created = true")
	}

	if blocked, err := s.IsBlocked(ctx, "1.2.3.4"); err != nil || !blocked {
		t.Fatalf("IsBlocked() = (%v, %v)", blocked, err)
	}

	entries, err := s.Blocked(ctx)
	if err != nil {
		t.Fatalf("Blocked() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Reason != "first" {
		t.Errorf("Blocked() = %+v", entries)
	}

	if err := s.Unblock(ctx, "1.2.3.4"); err != nil {
		t.Fatalf("Unblock() error = %v", err)
	}
	if err := s.Unblock(ctx, "1.2.3.4"); !errors.Is(err, domain.ErrBlockNotFound) {
		t.Errorf("Unblock(again) error = %v, want ErrBlockNotFound", err)
	}
}

func TestStore_BlockTTL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.Block(ctx, "ip", "temp", 100*time.Millisecond)
	time.Sleep(250 * time.Millisecond)
	if blocked, _ := s.IsBlocked(ctx, "ip"); blocked {
		t.Error("block should expire with its TTL")
	}
}
