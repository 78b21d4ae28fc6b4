package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the registrator, scheduler and execution
// pipeline. Callers match against these with errors.Is/errors.As.
var (
	ErrRouteNotFound        = errors.New("route not found")
	ErrRouteAlreadyBound    = errors.New("route is already attached to a router")
	ErrSelfInclusion        = errors.New("self-referencing router inclusion is not allowed")
	ErrCircularInclusion    = errors.New("circular router inclusion is not allowed")
	ErrUnsupportedFieldType = errors.New("unsupported field type for hashing")
	ErrUnknownInjectionType = errors.New("unknown type for injection")
	ErrMissingInjectionType = errors.New("injected parameter has no type annotation")
	ErrConcurrentRunModes   = errors.New("to_thread and to_process are mutually exclusive")
	ErrJobSkipped           = errors.New("skipped execution")
)

// ApplicationStateError is returned when an operation is attempted while
// the App is in the wrong lifecycle state (e.g. registering a route after
// Startup). Scheduling is not gated on Startup: a job scheduled before it
// is armed and fires once the timer loop runs.
type ApplicationStateError struct {
	Operation      string
	RequiredState  string
	ActualState    string
}

func (e *ApplicationStateError) Error() string {
	return fmt.Sprintf("cannot %q - application must be %q, but is currently %q",
		e.Operation, e.RequiredState, e.ActualState)
}

func NewApplicationStateError(operation, required, actual string) error {
	return &ApplicationStateError{Operation: operation, RequiredState: required, ActualState: actual}
}

// JobNotCompletedError is returned by Job.Result when the job has not
// reached a terminal state yet.
type JobNotCompletedError struct{}

func (e *JobNotCompletedError) Error() string {
	return "job result is not ready yet, please use Wait() and then you can use Result()"
}

// JobFailedError wraps the reason a job ended in the ERROR state.
type JobFailedError struct {
	JobID  string
	Reason error
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job_id: %s, failed_reason: %v", e.JobID, e.Reason)
}

func (e *JobFailedError) Unwrap() error { return e.Reason }

// NegativeDelayError is returned by Delay when given a negative
// duration. At does not return it: an instant in the past is accepted
// and the job fires on the next timer tick.
type NegativeDelayError struct {
	DelaySeconds float64
}

func (e *NegativeDelayError) Error() string {
	return fmt.Sprintf("negative delay_seconds (%g) is not supported, please provide non-negative values", e.DelaySeconds)
}

// HandlerSkippedError is raised by a middleware to short-circuit the chain
// without treating the job as failed.
type HandlerSkippedError struct {
	Reason string
}

func (e *HandlerSkippedError) Error() string {
	if e.Reason == "" {
		return "handler was skipped by a middleware"
	}
	return "handler was skipped by a middleware: " + e.Reason
}

// JobSkippedError marks a job as intentionally not executed, distinct from
// HandlerSkippedError which describes the middleware decision that caused it.
type JobSkippedError struct {
	Reason string
}

func (e *JobSkippedError) Error() string {
	if e.Reason == "" {
		return "job was skipped"
	}
	return "job was skipped: " + e.Reason
}

// WrapRouteError wraps a route-related error with context.
func WrapRouteError(op, routeName string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s route %q: %w", op, routeName, err)
}

// WrapJobError wraps a job-related error with context.
func WrapJobError(op, jobID string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s job %q: %w", op, jobID, err)
}

// WrapStoreError wraps a durable-store error with context.
func WrapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("store %s: %w", op, err)
}

// IsRetryableError reports whether err looks transient enough to retry.
// The built-in RetryMiddleware does not consult it; that middleware
// retries on any error other than HandlerSkippedError.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var stateErr *ApplicationStateError
	if errors.As(err, &stateErr) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused", "connection reset", "timeout",
		"temporary failure", "no such host", "network unreachable",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

func unknownInjectionTypeError(available []string) error {
	return fmt.Errorf("%w: available types: %s", ErrUnknownInjectionType, strings.Join(available, ", "))
}
