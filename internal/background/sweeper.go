package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/mbenedict/gatehouse/internal/store"
)

// Sweeper periodically purges expired rows from store backends that do not
// auto-evict. Correctness never depends on it: expired entries are already
// invisible to reads. It only reclaims space.
type Sweeper struct {
	purger   store.Purger
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewSweeper creates a new Sweeper
func NewSweeper(purger store.Purger, logger *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		purger:   purger,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep task
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run immediately on startup
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopCh:
			s.logger.Info("sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("sweeper context cancelled")
			return
		}
	}
}

func (s *Sweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := s.purger.PurgeExpired(sweepCtx)
	if err != nil {
		s.logger.Error("failed to purge expired entries", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		s.logger.Info("expired entry sweep completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the sweeper to stop
func (s *Sweeper) Stop() {
	close(s.stopCh)
}
