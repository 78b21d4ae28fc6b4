package core

import (
	"reflect"
	"time"
)

var errType = reflect.TypeFor[error]()

// Route is a registered handler: a stable name, its call plan, and the
// options it was registered with. Routes are immutable once the owning
// app has started.
type Route struct {
	name      string
	fn        reflect.Value
	plan      []paramSlot
	opts      RouteOptions
	scheduler *Scheduler
}

func newRoute(name string, fn reflect.Value, plan []paramSlot, opts RouteOptions, s *Scheduler) *Route {
	return &Route{name: name, fn: fn, plan: plan, opts: opts, scheduler: s}
}

func (r *Route) Name() string          { return r.name }
func (r *Route) Options() RouteOptions { return r.opts }

func (r *Route) logger() Logger {
	if r.scheduler == nil {
		return nil
	}
	return r.scheduler.Logger
}

// invoke performs dependency injection and calls the underlying
// function via reflection, normalizing its return shape to (any, error).
func (r *Route) invoke(jc *JobContext) (any, error) {
	if r.opts.RunMode == RunModeProcess {
		return r.scheduler.processPool.Run(r, jc)
	}
	return r.invokeDirect(jc)
}

// invokeDirect calls the handler in-process, skipping the PROCESS-mode
// re-exec decision. The worker binary re-exec'd by ProcessPool.Run calls
// this (via InvokeStandalone) so a route registered with RunModeProcess
// doesn't re-exec itself again inside the worker.
func (r *Route) invokeDirect(jc *JobContext) (any, error) {
	args, err := buildCallArgs(r.plan, jc, jc.Job.args)
	if err != nil {
		return nil, err
	}

	out := r.fn.Call(args)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type().Implements(errType) {
			if out[0].IsNil() {
				return nil, nil
			}
			return nil, out[0].Interface().(error)
		}
		return out[0].Interface(), nil
	default:
		var retErr error
		last := out[len(out)-1]
		if last.Type().Implements(errType) && !last.IsNil() {
			retErr = last.Interface().(error)
		}
		return out[0].Interface(), retErr
	}
}

// Schedule begins building a one-shot or cron invocation of this route.
// args are positional values filled into the handler's non-injected
// parameters, in declaration order.
func (r *Route) Schedule(args ...any) *ScheduleBuilder {
	return &ScheduleBuilder{route: r, args: args}
}

// ScheduleBuilder is the fluent terminal-call builder returned by
// Route.Schedule. Exactly one of At, Delay or Cron terminates it.
type ScheduleBuilder struct {
	route *Route
	args  []any
	job   *Job
}

// At schedules a single execution at the given time. Calling a terminal
// builder method again on the same builder cancels the previously
// scheduled job and re-arms under the same job_id.
func (b *ScheduleBuilder) At(when time.Time) (*Job, error) {
	id := b.route.scheduler.cancelBuilderJob(b.job)
	job, err := b.route.scheduler.scheduleAtWithID(b.route, when, b.args, "", id)
	if err != nil {
		return nil, err
	}
	b.job = job
	return job, nil
}

// Delay schedules a single execution after d elapses. A negative d
// fails with NegativeDelayError. Calling a terminal builder method
// again on the same builder cancels the previously scheduled job and
// re-arms under the same job_id.
func (b *ScheduleBuilder) Delay(d time.Duration) (*Job, error) {
	if d < 0 {
		return nil, &NegativeDelayError{DelaySeconds: d.Seconds()}
	}
	now := b.route.scheduler.Clock.Now()
	id := b.route.scheduler.cancelBuilderJob(b.job)
	job, err := b.route.scheduler.scheduleAtWithID(b.route, now.Add(d), b.args, "", id)
	if err != nil {
		return nil, err
	}
	b.job = job
	return job, nil
}

// Cron schedules recurring executions following a cron expression,
// re-armed after each run (success or retryable failure) until
// MaxCronFailures consecutive failures or MaxRuns total runs stop it.
// Calling a terminal builder method again on the same builder cancels
// the previous series and re-arms under the same job_id.
func (b *ScheduleBuilder) Cron(expr string) (*Job, error) {
	id := b.route.scheduler.cancelBuilderJob(b.job)
	job, err := b.route.scheduler.scheduleCronWithID(b.route, expr, b.args, id)
	if err != nil {
		return nil, err
	}
	b.job = job
	return job, nil
}

// InvokeStandalone calls the route's handler directly with args, outside
// the timer engine and without re-running the middleware chain (the
// parent process already ran it before dispatching to the worker). It
// exists for the PROCESS-mode worker entrypoint: the re-exec'd binary
// looks its route up by name and calls this instead of going through
// Schedule.
func (r *Route) InvokeStandalone(jobID string, args []any) (any, error) {
	job := newJob(r, time.Time{}, args, "")
	job.id = jobID
	jc := &JobContext{
		Job:          job,
		RouteOptions: r.opts,
		RequestState: NewRequestState(),
		Config:       r.scheduler.Config,
		Logger:       r.scheduler.Logger,
	}
	return r.invokeDirect(jc)
}
