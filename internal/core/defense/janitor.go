package defense

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper is implemented by state stores that need periodic cleanup.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time, window time.Duration) (int, error)
}

// RunJanitor sweeps s every interval until ctx is done.
func RunJanitor(ctx context.Context, s Sweeper, interval, window time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := s.Sweep(ctx, now, window)
			if err != nil {
				logger.Warn("defense sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("defense sweep", "removed", n)
			}
		}
	}
}
