package service

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// CryptoPool bounds the number of concurrent CPU-heavy operations
// (bcrypt, vault sealing).
type CryptoPool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewCryptoPool creates a pool of n slots. n <= 0 uses GOMAXPROCS.
func NewCryptoPool(n int) *CryptoPool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return &CryptoPool{sem: semaphore.NewWeighted(int64(n)), size: int64(n)}
}

// Size returns the number of slots.
func (p *CryptoPool) Size() int {
	return int(p.size)
}

// Do runs fn once a slot is free. It returns ctx.Err() if the context
// ends while waiting.
func (p *CryptoPool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	return fn()
}
