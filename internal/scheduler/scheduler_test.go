package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

var riyadh = time.FixedZone("AST", 3*3600)

func noop(context.Context) {}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestNew_RejectsBadArgs(t *testing.T) {
	cases := []struct {
		name string
		spec string
		fn   func(context.Context)
	}{
		{"free text", "every day at nine", noop},
		{"seconds field", "0 0 9 * * *", noop},
		{"out of range hour", "0 25 * * *", noop},
		{"nil tick", "0 9 * * *", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := New(tc.spec, riyadh, tc.fn)
			if err == nil {
				t.Fatalf("expected error for %q", tc.spec)
			}
			if s != nil {
				t.Fatalf("expected nil scheduler, got %#v", s)
			}
		})
	}
}

func TestNext_InBusinessLocation(t *testing.T) {
	s, err := New("30 9 * * *", riyadh, noop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	defer s.Stop()

	next := s.Next()
	if !next.After(time.Now()) || next.Sub(time.Now()) > 24*time.Hour {
		t.Fatalf("expected next run within a day, got %v", next)
	}
	if local := next.In(riyadh); local.Hour() != 9 || local.Minute() != 30 {
		t.Fatalf("expected 09:30 business time, got %v", local)
	}
}

func TestNew_NilLocationIsUTC(t *testing.T) {
	s, err := New("0 6 * * *", nil, noop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	defer s.Stop()

	if got := s.Next().UTC(); got.Hour() != 6 {
		t.Fatalf("expected 06:00 UTC, got %v", got)
	}
}

func TestNext_ZeroWhileStopped(t *testing.T) {
	s, err := New("0 9 * * *", riyadh, noop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Next().IsZero() {
		t.Fatalf("expected zero Next before Start")
	}

	s.Start()
	if s.Next().IsZero() {
		t.Fatalf("expected planned run while running")
	}

	s.Stop()
	if !s.Next().IsZero() {
		t.Fatalf("expected zero Next after Stop, got %v", s.Next())
	}

	s.Start()
	defer s.Stop()
	if s.Next().IsZero() {
		t.Fatalf("expected planned run after restart")
	}
}

func TestStartStop_ReportStateChanges(t *testing.T) {
	s, err := New("0 9 * * *", riyadh, noop)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.Stop() {
		t.Fatalf("expected Stop false before Start")
	}
	if !s.Start() || !s.IsRunning() {
		t.Fatalf("expected first Start to run the scheduler")
	}
	if s.Start() {
		t.Fatalf("expected second Start false")
	}
	if !s.Stop() || s.IsRunning() {
		t.Fatalf("expected Stop to halt the scheduler")
	}
	if s.Spec() != "0 9 * * *" {
		t.Fatalf("expected spec kept, got %q", s.Spec())
	}
}

func TestTick_NotFiredOnStart(t *testing.T) {
	var calls atomic.Int64
	s, err := New("@every 1s", riyadh, func(context.Context) { calls.Add(1) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	defer s.Stop()

	time.Sleep(300 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Fatalf("expected no tick right after Start, got %d", n)
	}

	waitFor(t, 3*time.Second, func() bool { return calls.Load() >= 1 })
}

func TestTick_OverlappingRunSkipped(t *testing.T) {
	var entered atomic.Int64
	release := make(chan struct{})

	s, err := New("@every 1s", riyadh, func(ctx context.Context) {
		if entered.Add(1) == 1 {
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	defer s.Stop()

	waitFor(t, 3*time.Second, func() bool { return entered.Load() == 1 })

	// Two more slots elapse while the first run is still blocked.
	time.Sleep(2200 * time.Millisecond)
	if n := entered.Load(); n != 1 {
		t.Fatalf("expected overlapping ticks skipped, got %d runs", n)
	}

	close(release)
	waitFor(t, 3*time.Second, func() bool { return entered.Load() >= 2 })
}

func TestStop_CancelsAndWaitsForRunningTick(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool

	s, err := New("@every 1s", riyadh, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatalf("tick did not start")
	}

	s.Stop()
	if !finished.Load() {
		t.Fatalf("expected Stop to wait for the running tick")
	}
}

func TestTick_PanicRecovered(t *testing.T) {
	var calls atomic.Int64
	s, err := New("@every 1s", riyadh, func(context.Context) {
		if calls.Add(1) == 1 {
			panic("boom")
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Start()
	defer s.Stop()

	waitFor(t, 4*time.Second, func() bool { return calls.Load() >= 2 })
	if !s.IsRunning() {
		t.Fatalf("expected scheduler running after a panicking tick")
	}
}
