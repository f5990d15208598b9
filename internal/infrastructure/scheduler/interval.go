package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"CitationWatch/internal/ports"
)

// IntervalScheduler runs a job on a fixed interval. Runs never overlap; ticks missed
// while a run is in progress collapse into a single pending run.
type IntervalScheduler struct {
	interval time.Duration
	location *time.Location

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler firing every interval, reporting trigger times in loc.
func NewIntervalScheduler(interval time.Duration, loc *time.Location) *IntervalScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &IntervalScheduler{interval: interval, location: loc}
}

// Start runs job immediately and then on every tick until ctx is done or Stop is called.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(ctx, job, s.stop, s.done)

	return nil
}

func (s *IntervalScheduler) loop(ctx context.Context, job func(time.Time), stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	job(time.Now().In(s.location))
	for {
		select {
		case t := <-ticker.C:
			job(t.In(s.location))
		case <-ctx.Done():
			return
		case <-stop:
			return
		}
	}
}

// Stop halts the ticker goroutine and waits for an in-flight run to finish.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the loop exits, or nil if the scheduler is not running.
func (s *IntervalScheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
