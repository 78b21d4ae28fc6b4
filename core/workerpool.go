package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/armon/circbuf"
	"golang.org/x/time/rate"

	"github.com/netresearch/ofelia/config"
)

// ThreadPool bounds THREAD-mode route concurrency with a semaphore
// channel, the same shape as the teacher's job-concurrency limiter, plus
// an optional rate limiter admission gate for callers that need to cap
// how often new THREAD-mode attempts start, independent of how many run
// concurrently.
type ThreadPool struct {
	sem     chan struct{}
	limiter *rate.Limiter
}

func NewThreadPool(size int) *ThreadPool {
	if size <= 0 {
		size = 1
	}
	return &ThreadPool{sem: make(chan struct{}, size)}
}

// SetRateLimit caps admission into the pool at rps attempts per second,
// with burst allowed to exceed that briefly. A zero or negative rps
// disables the limiter (the default).
func (p *ThreadPool) SetRateLimit(rps float64, burst int) {
	if rps <= 0 {
		p.limiter = nil
		return
	}
	p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// Run blocks until the rate limiter (if set) and a concurrency slot both
// admit the attempt, then executes fn synchronously and waits for it to
// finish.
func (p *ThreadPool) Run(ctx context.Context, fn func()) {
	if p.limiter != nil {
		_ = p.limiter.Wait(ctx)
	}
	p.sem <- struct{}{}
	defer func() { <-p.sem }()
	fn()
}

// ProcessPool dispatches PROCESS-mode routes to a subprocess, resolved
// by stable route name rather than by pickling a function value. The
// worker binary is expected to re-register the same routes, accept
// "-jobber-worker <route-name>" on argv and read a JSON workerMessage
// from stdin, per the name-based dispatch design in SPEC_FULL's design
// notes.
type ProcessPool struct {
	scheduler *Scheduler
	validator *config.CommandValidator
}

func NewProcessPool(s *Scheduler) *ProcessPool {
	return &ProcessPool{scheduler: s, validator: config.NewCommandValidator()}
}

// workerMessage is the wire payload handed to and read back from the
// worker process: arguments in, result/error out.
type workerMessage struct {
	RouteName string `json:"route_name"`
	JobID     string `json:"job_id"`
	Arguments []any  `json:"arguments"`
}

type workerResult struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// stringArgs extracts the string-typed elements of a job's positional
// arguments for command-injection screening; non-string arguments (e.g.
// numbers, structs) pass straight through the JSON encoder untouched.
func stringArgs(args []any) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if s, ok := a.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Run shells out to the configured worker binary for jc.Job's route,
// feeding it a JSON-encoded workerMessage on stdin and decoding a
// workerResult from stdout.
func (p *ProcessPool) Run(route *Route, jc *JobContext) (any, error) {
	binary := p.scheduler.Config.WorkerBinary
	if binary == "" {
		return nil, fmt.Errorf("process-mode route %q: no worker binary configured", route.name)
	}
	if err := p.validator.ValidateWorkerBinaryPath(binary); err != nil {
		return nil, fmt.Errorf("process-mode route %q: %w", route.name, err)
	}
	if err := p.validator.ValidateRouteName(route.name); err != nil {
		return nil, fmt.Errorf("process-mode route: %w", err)
	}
	if err := p.validator.ValidateJobArguments(stringArgs(jc.Job.args)); err != nil {
		return nil, fmt.Errorf("process-mode route %q: %w", route.name, err)
	}

	msg := workerMessage{RouteName: route.name, JobID: jc.Job.ID(), Arguments: jc.Job.args}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding worker message: %w", err)
	}

	ctx := context.Background()
	if jc.RouteOptions.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, jc.RouteOptions.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, binary, "-jobber-worker", route.name)
	cmd.Stdin = bytes.NewReader(payload)

	outBuf, err := circbuf.NewBuffer(1 << 20)
	if err != nil {
		return nil, fmt.Errorf("allocating worker output buffer: %w", err)
	}
	cmd.Stdout = outBuf
	errBuf, err := circbuf.NewBuffer(1 << 16)
	if err != nil {
		return nil, fmt.Errorf("allocating worker error buffer: %w", err)
	}
	cmd.Stderr = errBuf

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("worker process for route %q: %w (stderr: %s)", route.name, err, errBuf.String())
	}

	var res workerResult
	if err := json.Unmarshal(outBuf.Bytes(), &res); err != nil {
		return nil, fmt.Errorf("decoding worker result for route %q: %w", route.name, err)
	}
	if res.Error != "" {
		return nil, fmt.Errorf("%s", res.Error)
	}
	return res.Result, nil
}
