package usecase

import (
	"context"
	"log/slog"
	"time"

	"CitationWatch/internal/ports"
)

// RunFunc performs one scheduled run.
type RunFunc func(ctx context.Context) error

// Scheduler wires the interval driver with a run function.
type Scheduler struct {
	driver ports.Scheduler
	run    RunFunc
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, run RunFunc, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, run: run, logger: logger}
}

// Start registers the run with the provided scheduler. Failed runs are logged and
// the schedule continues.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.run == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if err := s.run(ctx); err != nil && s.logger != nil {
			s.logger.Error("scheduled run failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
