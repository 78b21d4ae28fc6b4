package core

import (
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Registrator is the route table: C1 in the component split. It
// enforces idempotent-by-name registration and the immutable-after-
// startup invariant.
type Registrator struct {
	mu        sync.Mutex
	routes    map[string]*Route
	scheduler *Scheduler
}

func newRegistrator(s *Scheduler) *Registrator {
	return &Registrator{routes: make(map[string]*Route), scheduler: s}
}

// Register binds fn as a route. fn must be a function value; its
// parameters are inspected once here to build the injection plan
// (see buildParamPlan). Registration after the owning app has started
// fails with ApplicationStateError.
func (r *Registrator) Register(fn any, opts RouteOptions) (*Route, error) {
	if r.scheduler.hasStarted() {
		return nil, NewApplicationStateError("register", "not started", "started")
	}

	opts = opts.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return nil, &fnNotAFunctionError{}
	}

	name := opts.Name
	if name == "" {
		name = defaultRouteName(fn)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.routes[name]; ok {
		return existing, nil
	}

	plan := buildParamPlan(v.Type())
	route := newRoute(name, v, plan, opts, r.scheduler)
	r.routes[name] = route
	return route, nil
}

// Get looks a route up by its stable name.
func (r *Registrator) Get(name string) (*Route, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	route, ok := r.routes[name]
	return route, ok
}

// Routes returns a snapshot of every registered route.
func (r *Registrator) Routes() []*Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Route, 0, len(r.routes))
	for _, route := range r.routes {
		out = append(out, route)
	}
	return out
}

type fnNotAFunctionError struct{}

func (e *fnNotAFunctionError) Error() string { return "Register requires a function value" }

// defaultRouteName mimics the Python create_default_name convention:
// "<package>.<funcID>", with a uuid suffix for closures/anonymous
// functions that share a single compiler-generated identifier.
func defaultRouteName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	rf := runtime.FuncForPC(pc)
	if rf == nil {
		return "anonymous." + uuid.NewString()
	}

	full := rf.Name() // e.g. "github.com/acme/app.(*T).Handler" or "main.main.func1"
	short := full
	if idx := strings.LastIndex(full, "/"); idx >= 0 {
		short = full[idx+1:]
	}

	if strings.Contains(short, ".func") {
		return short + "." + uuid.NewString()[:8]
	}
	return short
}
