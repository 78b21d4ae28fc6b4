package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJobContext() *JobContext {
	return &JobContext{
		Job:          &Job{id: "test-job"},
		RequestState: NewRequestState(),
	}
}

func TestTimeoutMiddleware_NoTimeoutPassesThrough(t *testing.T) {
	jc := newTestJobContext()
	called := false
	_, err := TimeoutMiddleware{}.Call(func(*JobContext) (any, error) {
		called = true
		return "ok", nil
	}, jc)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestTimeoutMiddleware_ExceedsDeadline(t *testing.T) {
	jc := newTestJobContext()
	jc.RouteOptions.Timeout = 10 * time.Millisecond

	_, err := TimeoutMiddleware{}.Call(func(*JobContext) (any, error) {
		time.Sleep(100 * time.Millisecond)
		return "late", nil
	}, jc)
	require.Error(t, err)
}

func TestTimeoutMiddleware_FinishesInTime(t *testing.T) {
	jc := newTestJobContext()
	jc.RouteOptions.Timeout = 100 * time.Millisecond

	v, err := TimeoutMiddleware{}.Call(func(*JobContext) (any, error) {
		return "fast", nil
	}, jc)
	require.NoError(t, err)
	assert.Equal(t, "fast", v)
}

func TestRetryMiddleware_SucceedsAfterRetries(t *testing.T) {
	jc := newTestJobContext()
	jc.RouteOptions.MaxRetries = 3

	attempts := 0
	v, err := RetryMiddleware{}.Call(func(*JobContext) (any, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("not yet")
		}
		return "done", nil
	}, jc)

	require.NoError(t, err)
	assert.Equal(t, "done", v)
	assert.Equal(t, 3, attempts)
}

func TestRetryMiddleware_ExhaustsRetries(t *testing.T) {
	jc := newTestJobContext()
	jc.RouteOptions.MaxRetries = 2
	boom := errors.New("boom")

	attempts := 0
	_, err := RetryMiddleware{}.Call(func(*JobContext) (any, error) {
		attempts++
		return nil, boom
	}, jc)

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
}

func TestRetryMiddleware_SkippedErrorStopsImmediately(t *testing.T) {
	jc := newTestJobContext()
	jc.RouteOptions.MaxRetries = 5

	attempts := 0
	_, err := RetryMiddleware{}.Call(func(*JobContext) (any, error) {
		attempts++
		return nil, &HandlerSkippedError{}
	}, jc)

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestExceptionMiddleware_SubstitutesResult(t *testing.T) {
	jc := newTestJobContext()
	target := errors.New("handled")
	registry := &ExceptionRegistry{}
	registry.Add(target, func(jc *JobContext, err error) (any, error) {
		return "recovered", nil
	})

	m := ExceptionMiddleware{Registry: registry}
	v, err := m.Call(func(*JobContext) (any, error) { return nil, target }, jc)

	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func TestExceptionMiddleware_UnmatchedErrorPropagates(t *testing.T) {
	jc := newTestJobContext()
	registry := &ExceptionRegistry{}
	registry.Add(errors.New("other"), func(jc *JobContext, err error) (any, error) { return "wrong", nil })

	boom := errors.New("boom")
	m := ExceptionMiddleware{Registry: registry}
	_, err := m.Call(func(*JobContext) (any, error) { return nil, boom }, jc)

	require.ErrorIs(t, err, boom)
}

func TestBuildChain_OrdersOutermostFirst(t *testing.T) {
	var order []string
	record := func(name string) MiddlewareFunc {
		return func(next CallNext, jc *JobContext) (any, error) {
			order = append(order, name)
			return next(jc)
		}
	}

	chain := BuildChain([]Middleware{record("outer"), record("inner")}, func(*JobContext) (any, error) {
		order = append(order, "terminal")
		return nil, nil
	})

	_, err := chain(newTestJobContext())
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "terminal"}, order)
}
