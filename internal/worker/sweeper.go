package worker

import (
	"context"
	"time"

	"github.com/senyabanana/tender-service/internal/logger"
	"github.com/senyabanana/tender-service/internal/services"

	"github.com/jonboulle/clockwork"
)

// DeadlineSweeper закрывает тендеры с истёкшим сроком подачи.
type DeadlineSweeper interface {
	Sweep(ctx context.Context, now time.Time) (services.SweepReport, error)
}

// Sweeper периодически запускает проход по просроченным тендерам.
type Sweeper struct {
	sweeper  DeadlineSweeper
	clock    clockwork.Clock
	interval time.Duration
	logger   *logger.Logger
}

// NewSweeper создаёт новый экземпляр Sweeper.
func NewSweeper(sweeper DeadlineSweeper, clock clockwork.Clock, interval time.Duration, log *logger.Logger) *Sweeper {
	return &Sweeper{sweeper: sweeper, clock: clock, interval: interval, logger: log.Named("sweeper")}
}

// Run выполняет проход сразу после старта и далее каждые interval, пока ctx не отменён.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Warn().Msg("sweep interval is not positive, sweeper disabled")
		return nil
	}
	s.logger.Info().Dur("interval", s.interval).Msg("sweeper started")

	s.sweepOnce(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper stopped")
			return nil
		case <-ticker.Chan():
			s.sweepOnce(ctx)
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	report, err := s.sweeper.Sweep(ctx, s.clock.Now())
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error().Err(err).Msg("deadline sweep failed")
		}
		return
	}
	for id, ferr := range report.Failed {
		s.logger.Warn().Err(ferr).Str("tender_id", id).Msg("tender left active after sweep")
	}
}
