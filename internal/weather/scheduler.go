package weather

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"farm-alert-service/internal/logging"
	"farm-alert-service/internal/models"
)

type sweepRunner interface {
	Sweep(ctx context.Context) (models.SweepSummary, error)
}

// Scheduler triggers a sweep every interval until its context is cancelled.
type Scheduler struct {
	sweeper  sweepRunner
	interval time.Duration
	clock    clockwork.Clock
	logger   *logging.Logger
}

func NewScheduler(sweeper sweepRunner, interval time.Duration, clock clockwork.Clock, logger *logging.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{sweeper: sweeper, interval: interval, clock: clock, logger: logger}
}

// Run blocks until ctx is done. Ticks that arrive during a sweep are dropped by the ticker.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Infof("Weather sweep scheduled every %s", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Weather sweep scheduler stopped")
			return
		case <-ticker.Chan():
			if _, err := s.sweeper.Sweep(ctx); err != nil {
				if errors.Is(err, ErrSweepRunning) {
					s.logger.Infof("Scheduled sweep skipped: %v", err)
					continue
				}
				s.logger.Errorf("Scheduled weather sweep failed: %v", err)
			}
		}
	}
}
