package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestIntervalSchedulerRunsImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	fired := make(chan struct{}, 16)

	s := NewIntervalScheduler(10*time.Millisecond, time.UTC)
	err := s.Start(context.Background(), func(time.Time) {
		runs.Add(1)
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("job did not fire %d times", i+1)
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if runs.Load() < 3 {
		t.Fatalf("expected at least 3 runs, got %d", runs.Load())
	}
}

func TestIntervalSchedulerDoesNotOverlapRuns(t *testing.T) {
	var active, overlaps atomic.Int32
	fired := make(chan struct{}, 16)

	s := NewIntervalScheduler(time.Millisecond, nil)
	err := s.Start(context.Background(), func(time.Time) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	for i := 0; i < 3; i++ {
		<-fired
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if overlaps.Load() != 0 {
		t.Fatalf("runs overlapped %d times", overlaps.Load())
	}
}

func TestIntervalSchedulerStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewIntervalScheduler(time.Hour, time.UTC)
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("start: %v", err)
	}
	done := s.Done()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not exit after cancel")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop after cancel: %v", err)
	}
}

func TestIntervalSchedulerRejectsZeroInterval(t *testing.T) {
	s := NewIntervalScheduler(0, nil)
	if err := s.Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
}
