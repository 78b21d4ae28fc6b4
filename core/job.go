package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Job is one scheduled or in-flight invocation of a Route. Cron routes
// allocate a fresh Job (and job_id) on every re-arm; one-shot routes
// live for a single Job.
type Job struct {
	id      string
	route   *Route
	execAt  time.Time
	args    []any
	cronExp string // non-empty for cron-armed jobs

	mu       sync.Mutex
	status   Status
	result   any
	err      error
	done     chan struct{}
	doneOnce sync.Once

	onSuccess []func(any)
	onError   []func(error)

	cancel context.CancelFunc

	heapIndex int    // maintained by the scheduler's heap.Interface
	seq       uint64 // heap tie-break, assigned on push
	series    *cronSeries
}

func newJob(route *Route, execAt time.Time, args []any, cronExp string) *Job {
	return &Job{
		id:        uuid.NewString(),
		route:     route,
		execAt:    execAt,
		args:      args,
		cronExp:   cronExp,
		status:    StatusScheduled,
		done:      make(chan struct{}),
		heapIndex: -1,
	}
}

func (j *Job) ID() string       { return j.id }
func (j *Job) RouteName() string { return j.route.Name() }
func (j *Job) ExecAt() time.Time { return j.execAt }
func (j *Job) IsCron() bool      { return j.cronExp != "" }

func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.status
}

// OnSuccess registers a hook invoked with the handler's return value when
// the job reaches SUCCESS. Hooks run after the job transitions and any
// hook panic/error is logged, never propagated to the engine.
func (j *Job) OnSuccess(fn func(any)) *Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onSuccess = append(j.onSuccess, fn)
	if j.series != nil {
		j.series.onSuccess = append(j.series.onSuccess, fn)
	}
	return j
}

// OnError registers a hook invoked with the failure when the job reaches
// ERROR or TIMEOUT.
func (j *Job) OnError(fn func(error)) *Job {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.onError = append(j.onError, fn)
	if j.series != nil {
		j.series.onError = append(j.series.onError, fn)
	}
	return j
}

// Result returns the handler's return value, or JobNotCompletedError if
// the job hasn't reached a terminal state, or a JobFailedError wrapping
// the failure.
func (j *Job) Result() (any, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.status.Terminal() {
		return nil, &JobNotCompletedError{}
	}
	if j.status == StatusError || j.status == StatusTimeout {
		return nil, &JobFailedError{JobID: j.id, Reason: j.err}
	}
	if j.status == StatusCanceled {
		return nil, &JobSkippedError{Reason: "canceled"}
	}
	return j.result, nil
}

// Wait blocks until the job reaches a terminal state or ctx is done.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel marks the job CANCELED. It is idempotent; canceling a job that
// already reached a terminal state is a no-op. Canceling a RUNNING job
// marks it CANCELED and wakes its waiters at once, in every run mode;
// the in-flight handler is not interrupted (it receives no context),
// its eventual outcome is discarded, and a PROCESS worker keeps running.
func (j *Job) Cancel() {
	j.mu.Lock()
	if j.status.Terminal() {
		j.mu.Unlock()
		return
	}
	wasRunning := j.status == StatusRunning
	wasScheduled := j.status == StatusScheduled
	j.status = StatusCanceled
	cancel := j.cancel
	j.mu.Unlock()

	if wasRunning && cancel != nil {
		cancel()
	}
	if wasScheduled && j.route != nil && j.route.scheduler != nil {
		j.route.scheduler.remove(j)
		j.route.scheduler.unpersist(j)
	}
	j.finish()
}

func (j *Job) markRunning(cancel context.CancelFunc) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.status = StatusRunning
	j.cancel = cancel
}

func (j *Job) succeed(result any) {
	j.mu.Lock()
	j.status = StatusSuccess
	j.result = result
	hooks := append([]func(any){}, j.onSuccess...)
	j.mu.Unlock()

	for _, h := range hooks {
		runHookSafely(j.route.logger(), func() { h(result) })
	}
	j.finish()
}

func (j *Job) fail(status Status, err error) {
	j.mu.Lock()
	j.status = status
	j.err = err
	hooks := append([]func(error){}, j.onError...)
	j.mu.Unlock()

	for _, h := range hooks {
		runHookSafely(j.route.logger(), func() { h(err) })
	}
	j.finish()
}

func (j *Job) finish() {
	j.doneOnce.Do(func() { close(j.done) })
}

// panicDiagnostics receives a diagnostic trace (with stack) whenever a
// hook panics, in addition to the plain Logger.Errorf line. Nil by
// default; wired to logging.StructuredLogger by the application layer
// since core must not import logging (it would import core back, for
// the Logger interface its sinks implement).
var panicDiagnostics func(message string, fields map[string]any)

// SetPanicDiagnostics installs fn as the hook-panic diagnostic-trace
// sink. Pass nil to disable.
func SetPanicDiagnostics(fn func(message string, fields map[string]any)) {
	panicDiagnostics = fn
}

// runHookSafely recovers a panicking hook and logs it as a diagnostic
// trace, matching the "hooks never propagate to the engine" contract.
func runHookSafely(log Logger, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if log != nil {
				log.Errorf("job hook panicked: %v", r)
			}
			if panicDiagnostics != nil {
				panicDiagnostics("job hook panicked", map[string]any{"panic": r})
			}
		}
	}()
	fn()
}
