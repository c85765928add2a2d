package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ZAX3000/mailtrace/internal/logger"
)

func newTestRunner(cfg Config) (*Registry, *Runner) {
	reg := NewRegistry()
	return reg, NewRunner(reg, cfg, logger.GetDefault())
}

func waitTerminal(t *testing.T, r *Runner, id string) Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		snap, err := r.Progress(id)
		if err != nil {
			t.Fatalf("Progress failed: %v", err)
		}
		if snap.Status.Terminal() {
			return snap
		}
		select {
		case <-deadline:
			t.Fatalf("job %s never reached a terminal state, last: %+v", id, snap)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestRunnerSuccess(t *testing.T) {
	_, r := newTestRunner(Config{})
	defer r.Close()

	id := r.Start(context.Background(), func(ctx context.Context, publish func(int, string)) (any, error) {
		publish(0, "loading")
		publish(50, "scoring")
		publish(100, "done")
		return "payload", nil
	})

	snap := waitTerminal(t, r, id)
	if snap.Status != StatusDone {
		t.Fatalf("status = %s, want done", snap.Status)
	}
	if snap.Percent != 100 {
		t.Errorf("percent = %d, want 100", snap.Percent)
	}
	if snap.Phase != PhaseFinished {
		t.Errorf("phase = %q, want %q", snap.Phase, PhaseFinished)
	}

	result, _, err := r.Result(id)
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if result != "payload" {
		t.Errorf("result = %v, want payload", result)
	}
}

func TestRunnerError(t *testing.T) {
	_, r := newTestRunner(Config{})
	defer r.Close()

	id := r.Start(context.Background(), func(ctx context.Context, publish func(int, string)) (any, error) {
		return nil, errors.New("boom")
	})

	snap := waitTerminal(t, r, id)
	if snap.Status != StatusError {
		t.Fatalf("status = %s, want error", snap.Status)
	}
	if snap.Error != "boom" {
		t.Errorf("error = %q, want boom", snap.Error)
	}
}

func TestRunnerPanicBecomesError(t *testing.T) {
	_, r := newTestRunner(Config{})
	defer r.Close()

	id := r.Start(context.Background(), func(ctx context.Context, publish func(int, string)) (any, error) {
		panic("kaboom")
	})

	snap := waitTerminal(t, r, id)
	if snap.Status != StatusError {
		t.Fatalf("status = %s, want error", snap.Status)
	}
	if snap.Error == "" {
		t.Error("expected panic message in error field")
	}
}

func TestRunnerCancel(t *testing.T) {
	_, r := newTestRunner(Config{})
	defer r.Close()

	started := make(chan struct{})
	id := r.Start(context.Background(), func(ctx context.Context, publish func(int, string)) (any, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	<-started
	if err := r.Cancel(id); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	snap := waitTerminal(t, r, id)
	if snap.Status != StatusCancelled {
		t.Fatalf("status = %s, want cancelled", snap.Status)
	}
	if snap.Error != "" {
		t.Errorf("cancelled job carries error %q, want none", snap.Error)
	}
}

func TestRunnerCallerContextDoesNotCancelJob(t *testing.T) {
	_, r := newTestRunner(Config{})
	defer r.Close()

	// The start request's context dies as soon as the handler returns; the
	// job must keep running on its own detached context.
	reqCtx, cancelReq := context.WithCancel(context.Background())
	id := r.Start(reqCtx, func(ctx context.Context, publish func(int, string)) (any, error) {
		time.Sleep(20 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return "ok", nil
	})
	cancelReq()

	snap := waitTerminal(t, r, id)
	if snap.Status != StatusDone {
		t.Fatalf("status = %s, want done despite cancelled request context", snap.Status)
	}
}

func TestRunnerNotFound(t *testing.T) {
	_, r := newTestRunner(Config{})
	defer r.Close()

	if _, err := r.Progress("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Progress err = %v, want ErrNotFound", err)
	}
	if _, _, err := r.Result("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Result err = %v, want ErrNotFound", err)
	}
	if err := r.Cancel("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Cancel err = %v, want ErrNotFound", err)
	}
}

func TestRegistryMonotonicPercent(t *testing.T) {
	reg := NewRegistry()
	reg.create("j1", nil)

	set := func(pct int) {
		reg.update("j1", func(j *job) {
			j.snap.Status = StatusRunning
			j.snap.Percent = pct
		})
	}

	set(10)
	set(60)
	set(40) // regression must be dropped

	snap, err := reg.Progress("j1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if snap.Percent != 60 {
		t.Errorf("percent = %d, want 60 (regression dropped)", snap.Percent)
	}
}

func TestRegistryTerminalIsFinal(t *testing.T) {
	reg := NewRegistry()
	reg.create("j1", nil)

	reg.update("j1", func(j *job) {
		j.snap.Status = StatusDone
	})
	reg.update("j1", func(j *job) {
		j.snap.Status = StatusRunning
		j.snap.Percent = 10
	})

	snap, _ := reg.Progress("j1")
	if snap.Status != StatusDone {
		t.Errorf("status = %s, want done to stick", snap.Status)
	}
	if snap.Percent != 100 {
		t.Errorf("percent = %d, want 100 forced at done", snap.Percent)
	}
}

func TestRegistrySweepStalled(t *testing.T) {
	reg := NewRegistry()
	clock := time.Now()
	reg.now = func() time.Time { return clock }

	reg.create("stuck", nil)
	reg.update("stuck", func(j *job) {
		j.snap.Status = StatusRunning
	})

	clock = clock.Add(10 * time.Minute)
	reg.sweep(5*time.Minute, 0)

	snap, err := reg.Progress("stuck")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if snap.Status != StatusError {
		t.Errorf("status = %s, want error after stall", snap.Status)
	}
	if snap.Error == "" {
		t.Error("expected stall message in error field")
	}
}

func TestRegistrySweepRetention(t *testing.T) {
	reg := NewRegistry()
	clock := time.Now()
	reg.now = func() time.Time { return clock }

	reg.create("old", nil)
	reg.update("old", func(j *job) {
		j.snap.Status = StatusDone
	})
	reg.create("fresh", nil)

	clock = clock.Add(2 * time.Hour)
	reg.sweep(0, time.Hour)

	if _, err := reg.Progress("old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expired job to be gone, got err = %v", err)
	}
	if _, err := reg.Progress("fresh"); err != nil {
		t.Errorf("pending job must survive retention sweep, got err = %v", err)
	}
	if reg.len() != 1 {
		t.Errorf("registry len = %d, want 1", reg.len())
	}
}
