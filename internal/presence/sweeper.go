// Package presence expires participant records whose clients disappeared
// without a clean teardown (crash, network loss). Active records carry a
// heartbeat timestamp; anything older than the TTL is swept to left.
package presence

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Roster is the sweep entry point on the participant service.
type Roster interface {
	ExpireStale(ctx context.Context, ttl time.Duration) (int, error)
}

// Sweeper periodically expires stale participant records.
type Sweeper struct {
	roster   Roster
	ttl      time.Duration
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a presence sweeper.
func NewSweeper(roster Roster, ttl, interval time.Duration, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{roster: roster, ttl: ttl, interval: interval, logger: logger}
}

// Run sweeps on a ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("presence sweeper started",
		zap.Duration("ttl", s.ttl), zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("presence sweeper stopped")
			return
		case <-ticker.C:
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	swept, err := s.roster.ExpireStale(sweepCtx, s.ttl)
	if err != nil {
		s.logger.Warn("presence sweep failed", zap.Error(err))
		return
	}
	if swept > 0 {
		s.logger.Info("swept stale participants", zap.Int("count", swept))
	}
}
