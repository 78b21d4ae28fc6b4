package core

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownManager drives the app's drain: priority-ordered hooks run
// concurrently under a shared timeout when shutdown is triggered,
// either explicitly or by SIGINT/SIGTERM/SIGQUIT.
type ShutdownManager struct {
	timeout        time.Duration
	hooks          []ShutdownHook
	mu             sync.Mutex
	shutdownChan   chan struct{}
	isShuttingDown bool
	logger         Logger
}

// ShutdownHook is one registered drain step.
type ShutdownHook struct {
	Name     string
	Priority int // lower values are started first; hooks then run concurrently
	Hook     func(context.Context) error
}

func NewShutdownManager(logger Logger, timeout time.Duration) *ShutdownManager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{
		timeout:      timeout,
		shutdownChan: make(chan struct{}),
		logger:       logger,
	}
}

// RegisterHook inserts hook, keeping hooks sorted by ascending priority.
func (sm *ShutdownManager) RegisterHook(hook ShutdownHook) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.hooks = append(sm.hooks, hook)
	for i := len(sm.hooks) - 1; i > 0 && sm.hooks[i].Priority < sm.hooks[i-1].Priority; i-- {
		sm.hooks[i], sm.hooks[i-1] = sm.hooks[i-1], sm.hooks[i]
	}
}

// ListenForShutdown triggers Shutdown on SIGINT/SIGTERM/SIGQUIT.
func (sm *ShutdownManager) ListenForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		sig := <-sigChan
		if sm.logger != nil {
			sm.logger.Warningf("received shutdown signal: %v", sig)
		}
		_ = sm.Shutdown()
	}()
}

// Shutdown runs every registered hook, in priority order but
// concurrently within the shared timeout, and aggregates failures.
func (sm *ShutdownManager) Shutdown() error {
	sm.mu.Lock()
	if sm.isShuttingDown {
		sm.mu.Unlock()
		return fmt.Errorf("shutdown already in progress")
	}
	sm.isShuttingDown = true
	hooks := append([]ShutdownHook{}, sm.hooks...)
	sm.mu.Unlock()

	if sm.logger != nil {
		sm.logger.Noticef("starting graceful shutdown (timeout: %v)", sm.timeout)
	}

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()
	close(sm.shutdownChan)

	var wg sync.WaitGroup
	errChan := make(chan error, len(hooks))
	for _, hook := range hooks {
		wg.Add(1)
		go func(h ShutdownHook) {
			defer wg.Done()
			if err := h.Hook(ctx); err != nil {
				errChan <- fmt.Errorf("hook %s: %w", h.Name, err)
			}
		}(hook)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out after %v", sm.timeout)
	}

	close(errChan)
	var failures []error
	for err := range errChan {
		failures = append(failures, err)
	}
	if len(failures) > 0 {
		return fmt.Errorf("shutdown completed with %d errors: %v", len(failures), failures)
	}
	return nil
}

func (sm *ShutdownManager) ShutdownChan() <-chan struct{} { return sm.shutdownChan }

func (sm *ShutdownManager) IsShuttingDown() bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.isShuttingDown
}

// GracefulScheduler registers the Scheduler's drain (stop accepting new
// timer fires, wait for in-flight attempts) as a shutdown hook.
type GracefulScheduler struct {
	*Scheduler
	shutdownManager *ShutdownManager
}

func NewGracefulScheduler(scheduler *Scheduler, shutdownManager *ShutdownManager) *GracefulScheduler {
	gs := &GracefulScheduler{Scheduler: scheduler, shutdownManager: shutdownManager}
	shutdownManager.RegisterHook(ShutdownHook{
		Name:     "scheduler",
		Priority: 10,
		Hook:     gs.gracefulStop,
	})
	return gs
}

func (gs *GracefulScheduler) gracefulStop(ctx context.Context) error {
	if gs.Scheduler.Logger != nil {
		gs.Scheduler.Logger.Noticef("stopping scheduler gracefully")
	}

	done := make(chan struct{})
	go func() {
		gs.Scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for in-flight jobs to drain")
	}
}
