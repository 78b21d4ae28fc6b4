package core

import (
	"container/heap"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netresearch/ofelia/serializer"
)

// CronParser is the pluggable collaborator the engine consults for
// cron-expression bookkeeping. The engine itself never parses cron
// syntax; it only asks "when does this fire next" and "what was your
// expression" (for display/debugging). A concrete implementation lives
// in the sibling cronparser package, wired in by the application.
type CronParser interface {
	NextRun(now time.Time) (time.Time, error)
	Expression() string
}

// CronParserFactory builds a CronParser from a cron expression string.
type CronParserFactory func(expr string) (CronParser, error)

// Scheduler is the timer & cron engine (C3): a single goroutine owns a
// min-heap of pending Jobs ordered by ExecAt and one armed timer for
// the earliest deadline, mirroring the heap+TimerHandle design of the
// system this was ported from.
type Scheduler struct {
	Logger Logger
	Clock  Clock
	State  *State
	Config *AppConfig

	CronFactory CronParserFactory
	Store       DurableStore

	Registrator *Registrator

	exceptions *ExceptionRegistry
	userMw     middlewareOrder
	routeMw    map[string][]Middleware

	threadPool  *ThreadPool
	processPool *ProcessPool

	mu       sync.Mutex
	pending  jobHeap
	timer    Timer
	started  atomic.Bool
	stopping chan struct{}
	wg       sync.WaitGroup
	chains   map[string]CallNext
}

// NewScheduler builds a Scheduler ready for route registration. Startup
// must be called before any Job fires.
func NewScheduler(logger Logger, clock Clock, cronFactory CronParserFactory) *Scheduler {
	s := &Scheduler{
		Logger:      logger,
		Clock:       clock,
		State:       NewState(),
		Config:      &AppConfig{},
		CronFactory: cronFactory,
		exceptions:  &ExceptionRegistry{},
		routeMw:     make(map[string][]Middleware),
		stopping:    make(chan struct{}),
		chains:      make(map[string]CallNext),
	}
	s.Registrator = newRegistrator(s)
	s.threadPool = NewThreadPool(16)
	s.processPool = NewProcessPool(s)
	return s
}

func (s *Scheduler) hasStarted() bool { return s.started.Load() }

// SetThreadPoolRateLimit caps how often THREAD-mode routes are admitted
// to run, independent of the fixed concurrency bound. See
// ThreadPool.SetRateLimit.
func (s *Scheduler) SetThreadPoolRateLimit(rps float64, burst int) {
	s.threadPool.SetRateLimit(rps, burst)
}

// AddMiddleware prepends a user middleware: the most recently added one
// runs outermost, ahead of previously registered user middlewares.
func (s *Scheduler) AddMiddleware(m Middleware) {
	s.userMw.prepend(m)
}

// AddExceptionHandler registers h to handle errors matching target.
func (s *Scheduler) AddExceptionHandler(target error, h ExceptionHandler) {
	s.exceptions.Add(target, h)
}

// AddRouteMiddleware wraps one specific route with m, outside the
// scheduler-wide user middlewares. Used by the router package so a
// sub-router's Use() only affects its own routes.
func (s *Scheduler) AddRouteMiddleware(routeName string, m Middleware) {
	s.routeMw[routeName] = append(s.routeMw[routeName], m)
}

// Startup freezes the route table, builds each route's middleware
// chain, and fires any RunOnStartup routes. It must be called exactly
// once.
func (s *Scheduler) Startup() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}

	system := []Middleware{TimeoutMiddleware{}, RetryMiddleware{Logger: s.Logger}, ExceptionMiddleware{Registry: s.exceptions}}

	s.mu.Lock()
	for _, route := range s.Registrator.Routes() {
		all := append(append(append([]Middleware{}, s.routeMw[route.name]...), s.userMw.ordered()...), system...)
		s.chains[route.name] = BuildChain(all, terminalCallNext(route))
	}
	s.mu.Unlock()

	s.loadPersisted()

	s.wg.Add(1)
	go s.loop()

	for _, route := range s.Registrator.Routes() {
		if route.opts.RunOnStartup {
			_, _ = s.scheduleAt(route, s.Clock.Now(), nil, "")
		}
	}
}

// Stop halts the timer loop and waits for in-flight attempts to settle.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopping:
		return
	default:
		close(s.stopping)
	}
	s.wg.Wait()

	if s.Store != nil {
		if err := s.Store.Shutdown(context.Background()); err != nil && s.Logger != nil {
			s.Logger.Errorf("durable store shutdown: %v", err)
		}
	}
}

func (s *Scheduler) scheduleAt(route *Route, execAt time.Time, args []any, cronExpr string) (*Job, error) {
	return s.scheduleAtWithID(route, execAt, args, cronExpr, "")
}

// scheduleAtWithID is scheduleAt with an explicit job ID, used by
// reschedule-before-fire to preserve job_id across a rearm. id must be
// applied before persist, or the durable store would record the
// freshly generated UUID instead of the preserved one.
func (s *Scheduler) scheduleAtWithID(route *Route, execAt time.Time, args []any, cronExpr, id string) (*Job, error) {
	job := newJob(route, execAt, args, cronExpr)
	if id != "" {
		job.id = id
	}
	s.arm(job)
	s.persist(job)
	return job, nil
}

func (s *Scheduler) scheduleCron(route *Route, expr string, args []any) (*Job, error) {
	return s.scheduleCronWithID(route, expr, args, "")
}

func (s *Scheduler) scheduleCronWithID(route *Route, expr string, args []any, id string) (*Job, error) {
	parser, err := s.CronFactory(expr)
	if err != nil {
		return nil, err
	}
	next, err := parser.NextRun(s.Clock.Now())
	if err != nil {
		return nil, err
	}

	opts := route.opts.WithDefaults()
	series := &cronSeries{route: route, args: args, parser: parser, maxFailures: *opts.MaxCronFailures, maxRuns: opts.MaxRuns}
	job := newJob(route, next, args, expr)
	if id != "" {
		job.id = id
	}
	job.series = series
	series.current = job
	s.arm(job)
	s.persist(job)
	return job, nil
}

// cancelBuilderJob cancels old's pending arm (if still untriggered) and
// removes its durable record, returning its job_id so the replacement
// job can be armed under the same identity. old may be nil (first call
// on a builder), in which case the empty string is returned.
func (s *Scheduler) cancelBuilderJob(old *Job) string {
	if old == nil {
		return ""
	}
	if !old.Status().Terminal() {
		s.remove(old)
		old.Cancel()
	}
	s.unpersist(old)
	return old.id
}

// persist writes job's schedule to the durable store, unless the route
// opted out or no store is configured.
func (s *Scheduler) persist(job *Job) {
	if s.Store == nil || job.route.opts.NonDurable {
		return
	}
	msg := serializer.Message{
		JobID:     job.id,
		FuncName:  job.route.name,
		ExecAt:    job.execAt.Unix(),
		Arguments: job.args,
		CronExpr:  job.cronExp,
		Status:    job.Status().String(),
	}
	if err := s.Store.AddSchedule(context.Background(), msg); err != nil && s.Logger != nil {
		s.Logger.Errorf("persist job %s: %v", job.id, err)
	}
}

// unpersist removes job's durable record, called once it reaches a
// terminal status or is canceled before firing.
func (s *Scheduler) unpersist(job *Job) {
	if s.Store == nil || job.route.opts.NonDurable {
		return
	}
	if err := s.Store.DeleteSchedule(context.Background(), job.id); err != nil && s.Logger != nil {
		s.Logger.Errorf("delete persisted job %s: %v", job.id, err)
	}
}

// loadPersisted re-binds every durably stored SCHEDULED/RUNNING record
// to its route by FuncName and re-arms it; past-due jobs fire on the
// very next tick. Records whose route no longer exists are skipped.
func (s *Scheduler) loadPersisted() {
	if s.Store == nil {
		return
	}
	if err := s.Store.Startup(context.Background()); err != nil {
		if s.Logger != nil {
			s.Logger.Errorf("durable store startup: %v", err)
		}
		return
	}

	msgs, err := s.Store.GetSchedules(context.Background())
	if err != nil {
		if s.Logger != nil {
			s.Logger.Errorf("loading persisted schedules: %v", err)
		}
		return
	}

	for _, msg := range msgs {
		route, ok := s.Registrator.Get(msg.FuncName)
		if !ok {
			if s.Logger != nil {
				s.Logger.Warningf("persisted job %s: route %q no longer registered, dropping", msg.JobID, msg.FuncName)
			}
			continue
		}

		job := newJob(route, time.Unix(msg.ExecAt, 0), msg.Arguments, msg.CronExpr)
		job.id = msg.JobID
		if msg.CronExpr != "" {
			if parser, perr := s.CronFactory(msg.CronExpr); perr == nil {
				opts := route.opts.WithDefaults()
				series := &cronSeries{route: route, args: msg.Arguments, parser: parser, maxFailures: *opts.MaxCronFailures, maxRuns: opts.MaxRuns}
				job.series = series
				series.current = job
			}
		}
		s.arm(job)
	}
}

// cronSeries tracks re-arm bookkeeping and hooks that should carry
// forward across a cron route's successive Job instances.
type cronSeries struct {
	route             *Route
	args              []any
	parser            CronParser
	maxFailures       int
	maxRuns           int
	runCount          int
	consecutiveErrors int
	current           *Job
	onSuccess         []func(any)
	onError           []func(error)
}

func (s *Scheduler) arm(job *Job) {
	s.mu.Lock()
	heap.Push(&s.pending, job)
	s.rearmTimerLocked()
	s.mu.Unlock()
}

// remove pulls a job out of the heap before it fires (used by Cancel
// and by reschedule-before-fire).
func (s *Scheduler) remove(job *Job) {
	s.mu.Lock()
	if job.heapIndex >= 0 {
		heap.Remove(&s.pending, job.heapIndex)
	}
	s.rearmTimerLocked()
	s.mu.Unlock()
}

func (s *Scheduler) rearmTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len(s.pending) == 0 {
		return
	}
	delay := s.pending[0].execAt.Sub(s.Clock.Now())
	if delay < 0 {
		delay = 0
	}
	s.timer = s.Clock.NewTimer(delay)
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		var c <-chan time.Time
		if s.timer != nil {
			c = s.timer.C()
		}
		s.mu.Unlock()

		if c == nil {
			select {
			case <-s.stopping:
				return
			case <-time.After(50 * time.Millisecond):
				s.fireDue()
			}
			continue
		}

		select {
		case <-s.stopping:
			return
		case <-c:
			s.fireDue()
		}
	}
}

// fireDue pops and dispatches every job whose deadline has passed.
func (s *Scheduler) fireDue() {
	now := s.Clock.Now()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 || s.pending[0].execAt.After(now) {
			s.rearmTimerLocked()
			s.mu.Unlock()
			break
		}
		job := heap.Pop(&s.pending).(*Job)
		s.mu.Unlock()

		s.wg.Add(1)
		go s.dispatch(job)
	}
}

func (s *Scheduler) dispatch(job *Job) {
	defer s.wg.Done()

	if job.Status() == StatusCanceled {
		return
	}

	runMode := job.route.opts.RunMode
	run := func() {
		jc := &JobContext{
			Job:          job,
			State:        s.State,
			RouteOptions: job.route.opts,
			RequestState: NewRequestState(),
			Config:       s.Config,
			Logger:       s.Logger,
		}

		job.markRunning(func() {})

		chain := s.chains[job.route.name]
		if chain == nil {
			chain = terminalCallNext(job.route)
		}

		result, err := chain(jc)
		s.settle(job, result, err)
	}

	switch runMode {
	case RunModeThread:
		s.threadPool.Run(context.Background(), run)
	default:
		run()
	}
}

// settle transitions a job to its terminal state and, for cron jobs,
// re-arms the series.
func (s *Scheduler) settle(job *Job, result any, err error) {
	if job.Status() == StatusCanceled {
		return
	}

	switch {
	case err != nil && errors.Is(err, context.DeadlineExceeded):
		job.fail(StatusTimeout, err)
	case err != nil:
		job.fail(StatusError, err)
	default:
		job.succeed(result)
	}
	s.unpersist(job)

	series := job.series
	if series == nil {
		return
	}
	series.runCount++

	if err != nil {
		series.consecutiveErrors++
		if series.consecutiveErrors >= series.maxFailures {
			if s.Logger != nil {
				s.Logger.Warningf("route %s stopped after %d consecutive cron failures", series.route.name, series.consecutiveErrors)
			}
			return
		}
	} else {
		series.consecutiveErrors = 0
	}

	if series.maxRuns > 0 && series.runCount >= series.maxRuns {
		if s.Logger != nil {
			s.Logger.Noticef("route %s stopped after reaching max_runs=%d", series.route.name, series.maxRuns)
		}
		return
	}

	next, nerr := series.parser.NextRun(s.Clock.Now())
	if nerr != nil {
		if s.Logger != nil {
			s.Logger.Errorf("route %s: computing next cron run: %v", series.route.name, nerr)
		}
		return
	}

	nj := newJob(series.route, next, series.args, series.parser.Expression())
	nj.series = series
	nj.onSuccess = append([]func(any){}, series.onSuccess...)
	nj.onError = append([]func(error){}, series.onError...)
	series.current = nj
	s.arm(nj)
	s.persist(nj)
}

// jobHeap implements heap.Interface ordered by ExecAt, ties broken by
// a monotonically increasing sequence number assigned at push time.
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }
func (h jobHeap) Less(i, j int) bool {
	if h[i].execAt.Equal(h[j].execAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].execAt.Before(h[j].execAt)
}
func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *jobHeap) Push(x any) {
	j := x.(*Job)
	j.heapIndex = len(*h)
	j.seq = nextSeq()
	*h = append(*h, j)
}
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.heapIndex = -1
	*h = old[:n-1]
	return j
}

var seqCounter atomic.Uint64

func nextSeq() uint64 { return seqCounter.Add(1) }

// middlewareOrder keeps user middlewares such that the most recently
// added one is prepended (runs outermost), matching add_middleware.
type middlewareOrder struct {
	items []Middleware
}

func (o *middlewareOrder) prepend(m Middleware) {
	o.items = append([]Middleware{m}, o.items...)
}

func (o *middlewareOrder) ordered() []Middleware { return o.items }
