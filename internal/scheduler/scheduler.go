package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/couchcryptid/station-climate-etl/internal/aggregate"
)

// StatsRunner recomputes annual statistics; implemented by aggregate.Aggregator.
type StatsRunner interface {
	Run(ctx context.Context, stationID string, year int) (aggregate.Summary, error)
}

// Scheduler periodically recomputes annual statistics for all stations so
// the read API stays current after out-of-band ingestion runs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    StatsRunner
	interval  time.Duration
	logger    *slog.Logger
}

// New creates a Scheduler. An interval of zero disables scheduling.
func New(runner StatsRunner, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		interval:  interval,
		logger:    logger,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.logger.Info("stats scheduler disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		summary, err := s.runner.Run(ctx, "", 0)
		if err != nil {
			s.logger.Error("scheduled stats run failed", "error", err)
			return
		}
		s.logger.Info("scheduled stats run completed",
			"stations", summary.StationsProcessed,
			"years", summary.YearsProcessed,
			"groups", summary.GroupsComputed,
		)
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info("stats scheduler started", "interval", s.interval)
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
