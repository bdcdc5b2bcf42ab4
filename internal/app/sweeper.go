package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nimbusnote/auth-service/internal/repository"
	"github.com/nimbusnote/auth-service/internal/service"
)

// Sweeper periodically removes expired sessions and magic link tokens.
// Expired rows are already rejected at read time; the sweep only keeps
// the tables from growing without bound.
type Sweeper struct {
	sessions   service.SessionService
	magicLinks repository.MagicLinkRepository
	logger     *zap.Logger
	interval   time.Duration
}

// NewSweeper creates a sweeper running at the given interval.
func NewSweeper(sessions service.SessionService, magicLinks repository.MagicLinkRepository, logger *zap.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		sessions:   sessions,
		magicLinks: magicLinks,
		logger:     logger,
		interval:   interval,
	}
}

// Run sweeps until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if err := s.sessions.SweepExpired(ctx); err != nil {
		s.logger.Warn("session sweep failed", zap.Error(err))
	}
	if err := s.magicLinks.DeleteExpired(ctx); err != nil {
		s.logger.Warn("magic link sweep failed", zap.Error(err))
	}
}
