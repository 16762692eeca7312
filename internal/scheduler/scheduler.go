package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Refresher is the session operation the scheduler triggers.
type Refresher interface {
	Refresh(ctx context.Context, force bool) error
}

// Scheduler periodically asks an open session to refresh. A non-forced
// refresh lets the freshness policy decide whether the network is used.
type Scheduler struct {
	scheduler *gocron.Scheduler
	session   Refresher
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(session Refresher, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		session:   session,
		interval:  interval,
		logger:    logger.With("component", "scheduler"),
	}
}

// Start schedules the periodic job. Jobs stop issuing refreshes once ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		s.logger.Info("periodic refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(func() {
		if ctx.Err() != nil {
			return
		}
		s.logger.Debug("running periodic refresh")

		jobCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.session.Refresh(jobCtx, false); err != nil {
			s.logger.Warn("periodic refresh not delivered", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("periodic refresh scheduled", "interval", s.interval.String())
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
