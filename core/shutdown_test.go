package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownManager_RunsAllRegisteredHooks(t *testing.T) {
	sm := NewShutdownManager(NewSlogLogger(nil), time.Second)

	var mu sync.Mutex
	var order []string
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}
	sm.RegisterHook(ShutdownHook{Name: "b", Priority: 20, Hook: record("b")})
	sm.RegisterHook(ShutdownHook{Name: "a", Priority: 10, Hook: record("a")})

	require.NoError(t, sm.Shutdown())
	assert.ElementsMatch(t, []string{"a", "b"}, order)
}

func TestShutdownManager_SecondShutdownErrors(t *testing.T) {
	sm := NewShutdownManager(NewSlogLogger(nil), time.Second)
	require.NoError(t, sm.Shutdown())
	require.Error(t, sm.Shutdown())
}

func TestShutdownManager_AggregatesHookErrors(t *testing.T) {
	sm := NewShutdownManager(NewSlogLogger(nil), time.Second)
	boom := errors.New("boom")
	sm.RegisterHook(ShutdownHook{Name: "failing", Priority: 0, Hook: func(context.Context) error {
		return boom
	}})

	err := sm.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing")
}

func TestShutdownManager_TimesOutOnSlowHook(t *testing.T) {
	sm := NewShutdownManager(NewSlogLogger(nil), 10*time.Millisecond)
	sm.RegisterHook(ShutdownHook{Name: "slow", Priority: 0, Hook: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	err := sm.Shutdown()
	require.Error(t, err)
}

func TestShutdownManager_IsShuttingDownReflectsState(t *testing.T) {
	sm := NewShutdownManager(NewSlogLogger(nil), time.Second)
	assert.False(t, sm.IsShuttingDown())
	require.NoError(t, sm.Shutdown())
	assert.True(t, sm.IsShuttingDown())
}

func TestNewGracefulScheduler_DrainsOnShutdown(t *testing.T) {
	clock := NewFakeClock(time.Now())
	s := NewScheduler(NewSlogLogger(nil), clock, nil)
	s.Startup()

	sm := NewShutdownManager(NewSlogLogger(nil), time.Second)
	NewGracefulScheduler(s, sm)

	require.NoError(t, sm.Shutdown())
}
