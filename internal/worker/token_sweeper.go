package worker

import (
	"context"
	"storefront-downloads/internal/repository"
	"time"

	"github.com/rs/zerolog/log"
)

// TokenSweeper evicts download tokens that expired more than
// repository.ExpiredTokenRetention ago.
type TokenSweeper struct {
	repo     repository.TokenRepository
	interval time.Duration
	now      func() time.Time
}

func NewTokenSweeper(repo repository.TokenRepository, interval time.Duration) *TokenSweeper {
	return &TokenSweeper{
		repo:     repo,
		interval: interval,
		now:      time.Now,
	}
}

func (s *TokenSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (s *TokenSweeper) Sweep(ctx context.Context) int {
	removed, err := s.repo.DeleteExpired(ctx, s.now().Add(-repository.ExpiredTokenRetention))
	if err != nil {
		log.Error().Err(err).Msg("sweep expired download tokens")
		return 0
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Msg("expired download tokens swept")
	}
	return removed
}
