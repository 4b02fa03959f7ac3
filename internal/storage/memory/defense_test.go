package memory

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/tradegate-go/internal/core/defense"
	"github.com/yndnr/tradegate-go/internal/core/domain"
)

var t0 = time.Unix(1700000000, 0)

func TestDefenseStore_Admit(t *testing.T) {
	s := NewDefenseStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := s.Admit(ctx, "ip", t0.Add(time.Duration(i)*time.Second), time.Minute, 3)
		if err != nil || !ok {
			t.Fatalf("Admit(%d) = (%v, %v), want admitted", i, ok, err)
		}
	}

	if ok, _ := s.Admit(ctx, "ip", t0.Add(10*time.Second), time.Minute, 3); ok {
		t.Error("fourth request inside window should be denied")
	}

	// t0 falls out (now - t0 == window), t0+1s and t0+2s remain.
	if ok, _ := s.Admit(ctx, "ip", t0.Add(time.Minute), time.Minute, 3); !ok {
		t.Error("request at t0+60s should be admitted")
	}
	if ok, _ := s.Admit(ctx, "ip", t0.Add(time.Minute), time.Minute, 3); ok {
		t.Error("window is full again and should deny")
	}

	if ok, _ := s.Admit(ctx, "other", t0, time.Minute, 3); !ok {
		t.Error("other identity should be admitted")
	}
}

func TestDefenseStore_AdmitConcurrent(t *testing.T) {
	s := NewDefenseStore()
	ctx := context.Background()

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := s.Admit(ctx, "ip", t0, time.Minute, 100); ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	if admitted.Load() != 100 {
		t.Errorf("admitted = %d, want exactly 100", admitted.Load())
	}
}

func TestDefenseStore_Blocklist(t *testing.T) {
	now := t0
	s := NewDefenseStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if blocked, _ := s.IsBlocked(ctx, "ip"); blocked {
		t.Fatal("fresh store should not block")
	}

	if created, _ := s.Block(ctx, "ip", "first", 0); !created {
		t.Error("first Block() created = false")
	}
	if created, _ := s.Block(ctx, "ip", "second", 0); created {
		t.Error("repeat Block() created = true")
	}
	entries, _ := s.Blocked(ctx)
	if len(entries) != 1 || entries[0].Reason != "first" || !entries[0].Permanent() {
		t.Errorf("Blocked() = %+v, want one permanent entry with the first reason", entries)
	}

	if err := s.Unblock(ctx, "ip"); err != nil {
		t.Fatalf("Unblock() error = %v", err)
	}
	if err := s.Unblock(ctx, "ip"); !errors.Is(err, domain.ErrBlockNotFound) {
		t.Errorf("Unblock(again) error = %v, want ErrBlockNotFound", err)
	}
}

func TestDefenseStore_BlockTTL(t *testing.T) {
	now := t0
	s := NewDefenseStore(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	s.Block(ctx, "ip", "injection", time.Hour)
	if blocked, _ := s.IsBlocked(ctx, "ip"); !blocked {
		t.Fatal("identity should be blocked")
	}

	now = t0.Add(time.Hour)
	if blocked, _ := s.IsBlocked(ctx, "ip"); blocked {
		t.Error("block should expire at its TTL")
	}
	if entries, _ := s.Blocked(ctx); len(entries) != 0 {
		t.Errorf("Blocked() = %+v, want empty", entries)
	}
}

func TestDefenseStore_Sweep(t *testing.T) {
	s := NewDefenseStore(WithClock(func() time.Time { return t0 }))
	ctx := context.Background()

	s.Admit(ctx, "old", t0, time.Minute, 10)
	s.Admit(ctx, "fresh", t0.Add(50*time.Second), time.Minute, 10)
	s.Block(ctx, "temp", "x", time.Second)
	s.Block(ctx, "perm", "x", 0)

	removed, err := s.Sweep(ctx, t0.Add(time.Minute), time.Minute)
	if err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if removed != 2 {
		t.Errorf("Sweep() removed = %d, want 2", removed)
	}
	if s.Tracked() != 1 {
		t.Errorf("Tracked() = %d, want 1", s.Tracked())
	}
	if blocked, _ := s.IsBlocked(ctx, "perm"); !blocked {
		t.Error("permanent block must survive sweeps")
	}
}

func TestDefenseStore_Reset(t *testing.T) {
	s := NewDefenseStore()
	ctx := context.Background()
	s.Block(ctx, "ip", "x", 0)
	s.Admit(ctx, "ip", t0, time.Minute, 1)

	s.Reset(ctx)
	if blocked, _ := s.IsBlocked(ctx, "ip"); blocked || s.Tracked() != 0 {
		t.Error("Reset() should clear all state")
	}
}

func TestDefenseStore_Pipeline(t *testing.T) {
	now := t0
	clock := func() time.Time { return now }
	s := NewDefenseStore(WithClock(clock))
	p := defense.NewPipeline(s, defense.Config{Clock: clock})
	ctx := context.Background()

	req := func(target string) *defense.Request {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		r.Header.Set("User-Agent", "test")
		return defense.NewRequest(r, "192.0.2.10")
	}

	for i := 0; i < defense.DefaultMaxRequests; i++ {
		if v, err := p.Evaluate(ctx, req("/")); err != nil || !v.Allowed {
			t.Fatalf("request %d denied: %+v %v", i+1, v, err)
		}
	}
	if v, _ := p.Evaluate(ctx, req("/")); v.Reason != defense.ReasonRateLimited {
		t.Fatalf("request 101 reason = %v, want rate_limited", v.Reason)
	}

	now = now.Add(defense.DefaultWindow)
	if v, _ := p.Evaluate(ctx, req("/?q=1%20UNION%20SELECT%20pw")); v.Reason != defense.ReasonInjectionDetected {
		t.Fatalf("reason = %v, want injection_detected", v.Reason)
	}
	if v, _ := p.Evaluate(ctx, req("/")); v.Reason != defense.ReasonBlocked {
		t.Errorf("reason = %v, want blocked", v.Reason)
	}
}
