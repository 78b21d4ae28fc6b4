// Package jobber is an in-process job scheduler: register ordinary Go
// functions, then schedule executions of them at a future instant,
// after a delay, or on a recurring cron schedule.
package jobber

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/netresearch/ofelia/core"
	"github.com/netresearch/ofelia/cronparser"
	"github.com/netresearch/ofelia/logging"
	"github.com/netresearch/ofelia/router"
	"github.com/netresearch/ofelia/serializer"
	"github.com/netresearch/ofelia/store"
)

// diagnostics is the hook-panic diagnostic trace sink, shared process-wide
// since a panic is a process-wide concern rather than a per-App one.
var diagnostics = logging.NewStructuredLogger()

// jobLoggingMiddleware emits a structured start/complete/error record for
// every job run, via a JobLogger scoped to that one job ID; retries made
// by the system Retry middleware happen inside it and are not logged
// separately. Installed by
// default so an App gets structured per-job logs without the caller
// having to wire one up.
func jobLoggingMiddleware() core.Middleware {
	return core.MiddlewareFunc(func(next core.CallNext, jc *core.JobContext) (any, error) {
		jl := logging.NewJobLogger(jc.Job.ID(), jc.Job.RouteName())
		jl.LogStart()

		start := time.Now()
		result, err := next(jc)
		jl.LogComplete(time.Since(start), err == nil)
		if err != nil {
			jl.LogError(err, "attempt failed")
		}
		return result, err
	})
}

// App is the application facade: the registrator, timer engine,
// middleware chain and durable store, wired together and given one
// lifecycle (pre-start registration window, running window, graceful
// drain on Shutdown).
type App struct {
	scheduler *core.Scheduler
	root      *router.Router
	shutdown  *core.ShutdownManager
}

// Option configures an App at construction time.
type Option func(*App)

// WithTimezone records loc as the app's timezone in the *core.AppConfig
// handed to handlers. The cron engine does not read it: cron expressions
// are evaluated against the scheduler clock's own time and location.
func WithTimezone(loc *time.Location) Option {
	return func(a *App) { a.scheduler.Config.Timezone = loc }
}

// WithName sets the application name surfaced via *core.AppConfig
// injection.
func WithName(name string) Option {
	return func(a *App) { a.scheduler.Config.Name = name }
}

// WithWorkerBinary sets the argv[0] used to re-exec PROCESS-mode routes.
func WithWorkerBinary(path string) Option {
	return func(a *App) { a.scheduler.Config.WorkerBinary = path }
}

// WithDurableStore enables crash recovery, persisting every route's
// scheduled jobs (unless the route opts out) to s.
func WithDurableStore(s core.DurableStore) Option {
	return func(a *App) {
		a.scheduler.Store = s
		a.scheduler.Config.Durable = true
	}
}

// WithSQLiteStore is a convenience for the common case: a SQLite-backed
// durable store at path, using the JSON serializer.
func WithSQLiteStore(path string) Option {
	return func(a *App) {
		db, err := store.NewSQLite(path, serializer.JSON{})
		if err != nil {
			panic(fmt.Sprintf("jobber: opening sqlite store %q: %v", path, err))
		}
		a.scheduler.Store = db
		a.scheduler.Config.Durable = true
	}
}

// WithThreadPoolRateLimit caps how often THREAD-mode routes are admitted
// to start, in addition to the fixed concurrency bound the pool already
// enforces.
func WithThreadPoolRateLimit(rps float64, burst int) Option {
	return func(a *App) { a.scheduler.SetThreadPoolRateLimit(rps, burst) }
}

// WithLogger overrides the default slog-backed logger.
func WithLogger(l core.Logger) Option {
	return func(a *App) { a.scheduler.Logger = l }
}

// WithCronFactory overrides the default robfig/cron/v3-backed parser.
func WithCronFactory(f core.CronParserFactory) Option {
	return func(a *App) { a.scheduler.CronFactory = f }
}

// New builds an App ready for route registration. Routes must be
// registered before Startup; Startup freezes the route table.
func New(opts ...Option) *App {
	scheduler := core.NewScheduler(core.NewSlogLogger(nil), core.NewRealClock(), cronparser.Factory)
	root := router.New("")
	root.Bind(scheduler)

	core.SetPanicDiagnostics(func(message string, fields map[string]any) {
		diagnostics.ErrorWithFields(message, fields)
	})

	scheduler.AddMiddleware(jobLoggingMiddleware())

	a := &App{scheduler: scheduler, root: root}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register binds fn as a route under the app's root namespace.
func (a *App) Register(fn any, opts core.RouteOptions) (*core.Route, error) {
	return a.root.Register(fn, opts)
}

// Task returns a decorator-style helper: Task(opts)(fn) registers fn and
// returns its Route, matching the teacher's functional-options idiom.
func (a *App) Task(opts core.RouteOptions) func(fn any) *core.Route {
	return func(fn any) *core.Route {
		route, err := a.Register(fn, opts)
		if err != nil {
			panic(fmt.Sprintf("jobber: registering task: %v", err))
		}
		return route
	}
}

// Route looks up a previously registered route by name.
func (a *App) Route(name string) (*core.Route, bool) {
	return a.scheduler.Registrator.Get(name)
}

// AddMiddleware installs a middleware wrapping every route's execution.
func (a *App) AddMiddleware(m core.Middleware) { a.scheduler.AddMiddleware(m) }

// WithMiddleware installs m at construction time, equivalent to calling
// AddMiddleware immediately after New.
func WithMiddleware(m core.Middleware) Option {
	return func(a *App) { a.scheduler.AddMiddleware(m) }
}

// AddExceptionHandler registers h for errors matching target.
func (a *App) AddExceptionHandler(target error, h core.ExceptionHandler) {
	a.scheduler.AddExceptionHandler(target, h)
}

// IncludeRouter mounts r (and its sub-routers) under the app's root
// namespace.
func (a *App) IncludeRouter(r *router.Router) error {
	return a.root.IncludeRouter(r)
}

// Startup freezes the route table, loads any durable schedule, and
// starts the timer loop. It registers itself with sm as a priority-10
// shutdown hook so Shutdown (or a caught signal) drains in-flight jobs.
func (a *App) Startup(ctx context.Context, sm *core.ShutdownManager) error {
	a.shutdown = sm
	a.scheduler.Startup()
	sm.RegisterHook(core.ShutdownHook{
		Name:     "jobber",
		Priority: 10,
		Hook: func(hookCtx context.Context) error {
			done := make(chan struct{})
			go func() { a.scheduler.Stop(); close(done) }()
			select {
			case <-done:
				return nil
			case <-hookCtx.Done():
				return fmt.Errorf("timeout waiting for in-flight jobs to drain")
			}
		},
	})
	return nil
}

// Shutdown drains in-flight jobs and closes the durable store. Safe to
// call even if Startup registered the same drain as a shutdown hook;
// Scheduler.Stop is idempotent.
func (a *App) Shutdown(context.Context) error {
	a.scheduler.Stop()
	return nil
}

// workerMessage and workerResult mirror core's unexported wire structs
// (core/workerpool.go): ProcessPool.Run encodes one of the former to the
// re-exec'd worker's stdin and expects one of the latter back on stdout.
type workerMessage struct {
	RouteName string `json:"route_name"`
	JobID     string `json:"job_id"`
	Arguments []any  `json:"arguments"`
}

type workerResult struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunWorker is the PROCESS-mode re-exec entrypoint: it reads a
// workerMessage from r, invokes routeName's handler directly (bypassing
// the timer engine and middleware chain, already run by the parent), and
// writes a workerResult to w. Routes must already be registered on a by
// the time this is called, exactly as in the parent process.
func (a *App) RunWorker(routeName string, r io.Reader, w io.Writer) error {
	var msg workerMessage
	if err := json.NewDecoder(r).Decode(&msg); err != nil {
		return fmt.Errorf("decoding worker message: %w", err)
	}

	route, ok := a.scheduler.Registrator.Get(routeName)
	if !ok {
		return fmt.Errorf("worker: unknown route %q", routeName)
	}

	res := workerResult{}
	result, err := route.InvokeStandalone(msg.JobID, msg.Arguments)
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Result = result
	}

	if err := json.NewEncoder(w).Encode(res); err != nil {
		return fmt.Errorf("encoding worker result: %w", err)
	}
	return nil
}
