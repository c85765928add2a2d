package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ZAX3000/mailtrace/internal/logger"
)

// Task is the unit of background work a Runner executes. The task must call
// publish at coarse intervals (the registry enforces monotonic percent) and
// honor ctx cancellation at its own batch boundaries. The returned value
// becomes the job result on success.
type Task func(ctx context.Context, publish func(percent int, phase string)) (any, error)

// Config tunes the runner's watchdog behavior.
type Config struct {
	// StallTimeout marks a running job as errored when it publishes no
	// progress for this long. Zero disables the watchdog.
	StallTimeout time.Duration
	// Retention controls how long terminal jobs stay pollable before the
	// sweeper expires them. Zero keeps them forever.
	Retention time.Duration
	// SweepInterval is how often the watchdog runs. Defaults to 30s.
	SweepInterval time.Duration
}

// Runner executes Tasks as observable background jobs: one goroutine per
// active job, with progress exposed through the registry's snapshots.
type Runner struct {
	reg    *Registry
	cfg    Config
	log    *logger.Logger
	wg     sync.WaitGroup
	stopCh chan struct{}
	stop   sync.Once
}

// NewRunner creates a runner around the given registry and starts its
// watchdog when a stall timeout or retention is configured.
func NewRunner(reg *Registry, cfg Config, log *logger.Logger) *Runner {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	r := &Runner{
		reg:    reg,
		cfg:    cfg,
		log:    log,
		stopCh: make(chan struct{}),
	}
	if cfg.StallTimeout > 0 || cfg.Retention > 0 {
		go r.watchdog()
	}
	return r
}

// Start registers a pending job, schedules the task without blocking, and
// returns the fresh job identifier immediately.
func (r *Runner) Start(ctx context.Context, task Task) string {
	id := uuid.New().String()
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.reg.create(id, cancel)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		r.execute(jobCtx, id, task)
	}()
	return id
}

func (r *Runner) execute(ctx context.Context, id string, task Task) {
	log := r.log.WithField(logger.FieldJobID, id)

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("Job panicked")
			r.reg.update(id, func(j *job) {
				j.snap.Status = StatusError
				j.snap.Error = fmt.Sprintf("internal error: %v", rec)
			})
		}
	}()

	r.reg.update(id, func(j *job) {
		j.snap.Status = StatusRunning
	})

	publish := func(percent int, phase string) {
		r.reg.update(id, func(j *job) {
			j.snap.Percent = percent
			j.snap.Phase = phase
		})
	}

	result, err := task(logger.SetJobID(ctx, id), publish)
	switch {
	case err == nil:
		r.reg.update(id, func(j *job) {
			j.snap.Status = StatusDone
			j.snap.Phase = PhaseFinished
			j.result = result
		})
		log.Info("Job completed")
	case errors.Is(err, context.Canceled):
		r.reg.update(id, func(j *job) {
			j.snap.Status = StatusCancelled
			j.snap.Phase = PhaseFinished
		})
		log.Info("Job cancelled")
	default:
		r.reg.update(id, func(j *job) {
			j.snap.Status = StatusError
			j.snap.Error = err.Error()
		})
		log.WithError(err).Error("Job failed")
	}
}

// PhaseFinished is the phase reported once a job reaches a terminal state.
const PhaseFinished = "done"

// Progress returns the job's current snapshot.
func (r *Runner) Progress(id string) (Snapshot, error) {
	return r.reg.Progress(id)
}

// Result returns the job's result value and snapshot.
func (r *Runner) Result(id string) (any, Snapshot, error) {
	return r.reg.Result(id)
}

// Cancel requests cooperative cancellation of a job.
func (r *Runner) Cancel(id string) error {
	return r.reg.Cancel(id)
}

func (r *Runner) watchdog() {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.reg.sweep(r.cfg.StallTimeout, r.cfg.Retention)
		case <-r.stopCh:
			return
		}
	}
}

// Close stops the watchdog and waits for in-flight jobs to finish.
func (r *Runner) Close() {
	r.stop.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}
