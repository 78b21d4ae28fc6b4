package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// CallNext is the continuation a Middleware must invoke to proceed down
// the chain; the terminal CallNext performs dependency injection and
// calls the route's handler.
type CallNext func(*JobContext) (any, error)

// Middleware wraps a call in the execution pipeline. System middlewares
// (Timeout, Retry, Exception) are appended after every user middleware,
// in that order; user middlewares registered via AddMiddleware are
// prepended ahead of previously-added ones, so the most recently added
// user middleware runs outermost.
type Middleware interface {
	Call(next CallNext, jc *JobContext) (any, error)
}

// MiddlewareFunc adapts a plain function to Middleware.
type MiddlewareFunc func(next CallNext, jc *JobContext) (any, error)

func (f MiddlewareFunc) Call(next CallNext, jc *JobContext) (any, error) { return f(next, jc) }

// BuildChain composes middlewares (outermost first) around terminal.
func BuildChain(middlewares []Middleware, terminal CallNext) CallNext {
	chain := terminal
	for i := len(middlewares) - 1; i >= 0; i-- {
		m := middlewares[i]
		next := chain
		chain = func(jc *JobContext) (any, error) { return m.Call(next, jc) }
	}
	return chain
}

// ExceptionHandler reacts to an error escaping the chain and returns a
// (possibly substituted) result, or an error to keep propagating.
type ExceptionHandler func(jc *JobContext, err error) (any, error)

// ExceptionRegistry maps sentinel/typed errors to handlers, consulted by
// the system Exception middleware in registration order.
type ExceptionRegistry struct {
	entries []exceptionEntry
}

type exceptionEntry struct {
	target  error
	handler ExceptionHandler
}

func (r *ExceptionRegistry) Add(target error, h ExceptionHandler) {
	r.entries = append(r.entries, exceptionEntry{target: target, handler: h})
}

func (r *ExceptionRegistry) find(err error) ExceptionHandler {
	for _, e := range r.entries {
		if errors.Is(err, e.target) {
			return e.handler
		}
		// allow matching by dynamic type as well as sentinel identity;
		// plain errors.New sentinels all share one type, so they match by
		// identity only
		if tt := reflect.TypeOf(e.target); tt != nil && tt != reflect.TypeOf(errors.New("")) {
			if errors.As(err, reflect.New(tt).Interface()) {
				return e.handler
			}
		}
	}
	return nil
}

// TimeoutMiddleware bounds a single attempt by RouteOptions.Timeout.
type TimeoutMiddleware struct{}

func (TimeoutMiddleware) Call(next CallNext, jc *JobContext) (any, error) {
	timeout := jc.RouteOptions.Timeout
	if timeout <= 0 {
		return next(jc)
	}

	type outcome struct {
		v   any
		err error
	}
	done := make(chan outcome, 1)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	jc.Job.markRunning(cancel)

	go func() {
		v, err := next(jc)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.v, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("attempt exceeded timeout %s: %w", timeout, ctx.Err())
	}
}

// RetryMiddleware re-invokes the chain up to RouteOptions.MaxRetries
// additional times. Retries are immediate: no backoff is applied in
// the core execution contract (that is left to user middlewares).
type RetryMiddleware struct {
	Logger Logger
}

func (m RetryMiddleware) Call(next CallNext, jc *JobContext) (any, error) {
	maxRetries := jc.RouteOptions.MaxRetries
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		jc.RequestState = NewRequestState()
		v, err := next(jc)
		if err == nil {
			if attempt > 0 && m.Logger != nil {
				m.Logger.Noticef("job %s succeeded after %d retries", jc.Job.ID(), attempt)
			}
			return v, nil
		}
		var skipped *HandlerSkippedError
		if errors.As(err, &skipped) {
			return nil, err
		}
		lastErr = err
		if attempt < maxRetries && m.Logger != nil {
			m.Logger.Warningf("job %s failed (attempt %d/%d): %v", jc.Job.ID(), attempt+1, maxRetries+1, err)
		}
	}
	return nil, lastErr
}

// ExceptionMiddleware is the innermost system middleware: it runs the
// terminal handler and, on error, consults the registry for a matching
// handler before letting the error escape the pipeline.
type ExceptionMiddleware struct {
	Registry *ExceptionRegistry
}

func (m ExceptionMiddleware) Call(next CallNext, jc *JobContext) (any, error) {
	v, err := next(jc)
	if err == nil || m.Registry == nil {
		return v, err
	}
	if h := m.Registry.find(err); h != nil {
		return h(jc, err)
	}
	return v, err
}

// terminalCallNext performs dependency injection against plan and
// invokes the route's handler via reflection.
func terminalCallNext(route *Route) CallNext {
	return func(jc *JobContext) (any, error) {
		return route.invoke(jc)
	}
}
