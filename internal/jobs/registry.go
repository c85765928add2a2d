package jobs

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Status is the lifecycle state of an asynchronous job.
// pending -> running -> {done, error, cancelled}; the right-hand states are
// terminal and never transition again.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError || s == StatusCancelled
}

// ErrNotFound is returned for unknown or expired job identifiers.
var ErrNotFound = errors.New("job not found")

// Snapshot is an atomic, read-only view of a job's progress.
type Snapshot struct {
	Status  Status `json:"status"`
	Percent int    `json:"percent"`
	Phase   string `json:"phase"`
	Error   string `json:"error,omitempty"`
}

type job struct {
	snap      Snapshot
	result    any
	cancel    context.CancelFunc
	updatedAt time.Time
}

// Registry maps job identifiers to their state. It is an explicit, injectable
// component: each test and each service instance owns its own registry.
// One writer mutates a given job at a time while arbitrary pollers read;
// readers always observe a complete Snapshot.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*job
	now  func() time.Time
}

// NewRegistry creates an empty job registry.
func NewRegistry() *Registry {
	return &Registry{
		jobs: make(map[string]*job),
		now:  time.Now,
	}
}

func (r *Registry) create(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[id] = &job{
		snap:      Snapshot{Status: StatusPending, Phase: PhaseQueued},
		cancel:    cancel,
		updatedAt: r.now(),
	}
}

// PhaseQueued is the phase reported before the worker picks the job up.
const PhaseQueued = "queued"

// update applies a mutation under the write lock. Percent regressions and
// transitions out of a terminal state are silently dropped, which keeps the
// snapshot monotonic no matter how worker and watchdog interleave.
func (r *Registry) update(id string, fn func(*job)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok || j.snap.Status.Terminal() {
		return
	}
	before := j.snap.Percent
	fn(j)
	if j.snap.Percent < before {
		j.snap.Percent = before
	}
	if j.snap.Status == StatusDone {
		j.snap.Percent = 100
	}
	j.updatedAt = r.now()
}

// Progress returns the current snapshot for a job.
func (r *Registry) Progress(id string) (Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return j.snap, nil
}

// Result returns the job's result value together with its snapshot. The
// result is only set once the job reaches StatusDone.
func (r *Registry) Result(id string) (any, Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, Snapshot{}, ErrNotFound
	}
	return j.result, j.snap, nil
}

// Cancel requests cooperative cancellation. Terminal jobs are left untouched;
// the call is not an error in that case.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return ErrNotFound
	}
	if j.snap.Status.Terminal() {
		return nil
	}
	if j.cancel != nil {
		j.cancel()
	}
	return nil
}

// sweep marks running jobs with no update within stallTimeout as errored and
// deletes terminal jobs older than retention. Called by the runner's
// watchdog, never by the matcher.
func (r *Registry) sweep(stallTimeout, retention time.Duration) {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, j := range r.jobs {
		switch {
		case j.snap.Status.Terminal():
			if retention > 0 && now.Sub(j.updatedAt) > retention {
				delete(r.jobs, id)
			}
		case j.snap.Status == StatusRunning && stallTimeout > 0 && now.Sub(j.updatedAt) > stallTimeout:
			j.snap.Status = StatusError
			j.snap.Error = "job stalled: no progress within " + stallTimeout.String()
			j.updatedAt = now
			if j.cancel != nil {
				j.cancel()
			}
		}
	}
}

// len reports the number of tracked jobs. Used by tests.
func (r *Registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
