package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/ofelia/test"
)

func newTestScheduler(clock Clock) *Scheduler {
	return NewScheduler(NewSlogLogger(nil), clock, nil)
}

func TestScheduler_DelayFiresOnce(t *testing.T) {
	clock := NewFakeClock(time.Now())
	s := newTestScheduler(clock)

	done := make(chan struct{})
	route, err := s.Registrator.Register(func() error { close(done); return nil }, RouteOptions{Name: "once"})
	require.NoError(t, err)

	s.Startup()
	defer s.Stop()

	_, err = route.Schedule().Delay(10 * time.Millisecond)
	require.NoError(t, err)

	clock.Advance(20 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job never fired")
	}
}

func TestScheduler_AtInThePastFiresImmediately(t *testing.T) {
	clock := NewFakeClock(time.Now())
	s := newTestScheduler(clock)

	done := make(chan struct{})
	route, err := s.Registrator.Register(func() error { close(done); return nil }, RouteOptions{Name: "past"})
	require.NoError(t, err)

	s.Startup()
	defer s.Stop()

	_, err = route.Schedule().At(clock.Now().Add(-time.Hour))
	require.NoError(t, err)

	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("past-due job never fired")
	}
}

func TestScheduler_NegativeDelayRejected(t *testing.T) {
	clock := NewFakeClock(time.Now())
	s := newTestScheduler(clock)

	route, err := s.Registrator.Register(func() error { return nil }, RouteOptions{Name: "neg"})
	require.NoError(t, err)
	s.Startup()
	defer s.Stop()

	_, err = route.Schedule().Delay(-time.Second)
	require.Error(t, err)
	var negErr *NegativeDelayError
	require.ErrorAs(t, err, &negErr)
}

func TestScheduler_RegisterAfterStartupFails(t *testing.T) {
	clock := NewFakeClock(time.Now())
	s := newTestScheduler(clock)
	s.Startup()
	defer s.Stop()

	_, err := s.Registrator.Register(func() error { return nil }, RouteOptions{Name: "late"})
	require.Error(t, err)
}

func TestScheduler_RegisterIsIdempotentByName(t *testing.T) {
	clock := NewFakeClock(time.Now())
	s := newTestScheduler(clock)

	r1, err := s.Registrator.Register(func() error { return nil }, RouteOptions{Name: "dup"})
	require.NoError(t, err)
	r2, err := s.Registrator.Register(func() error { return errors.New("different body, same name") }, RouteOptions{Name: "dup"})
	require.NoError(t, err)

	assert.Same(t, r1, r2)
}

func TestScheduler_CronReArms(t *testing.T) {
	clock := NewFakeClock(time.Now())
	s := newTestScheduler(clock)
	s.CronFactory = func(expr string) (CronParser, error) {
		return &everySecondParser{}, nil
	}

	fired := make(chan struct{}, 10)
	route, err := s.Registrator.Register(func() error { fired <- struct{}{}; return nil }, RouteOptions{Name: "tick", MaxCronFailures: Ptr(1)})
	require.NoError(t, err)

	s.Startup()
	defer s.Stop()

	_, err = route.Schedule().Cron("@every 1s")
	require.NoError(t, err)

	for range 3 {
		clock.Advance(time.Second)
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("cron job did not re-fire")
		}
	}
}

func TestScheduler_CronStopsAfterMaxFailures(t *testing.T) {
	clock := NewFakeClock(time.Now())
	s := newTestScheduler(clock)
	s.CronFactory = func(expr string) (CronParser, error) {
		return &everySecondParser{}, nil
	}

	var attempts int
	done := make(chan struct{})
	route, err := s.Registrator.Register(func() error {
		attempts++
		if attempts == 2 {
			close(done)
		}
		return errors.New("boom")
	}, RouteOptions{Name: "failing", MaxCronFailures: Ptr(2)})
	require.NoError(t, err)

	s.Startup()
	defer s.Stop()

	_, err = route.Schedule().Cron("@every 1s")
	require.NoError(t, err)

	clock.Advance(time.Second)
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected two attempts before the series stops")
	}

	// A third tick must not produce a third attempt: the series already
	// stopped re-arming after consecutiveErrors reached MaxCronFailures.
	time.Sleep(20 * time.Millisecond)
	clock.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, attempts)
}

func TestScheduler_CronStopsAfterMaxFailuresLogsWarning(t *testing.T) {
	clock := NewFakeClock(time.Now())
	slogLogger, handler := test.NewTestLoggerWithHandler()
	s := NewScheduler(NewSlogLogger(slogLogger), clock, func(expr string) (CronParser, error) {
		return &everySecondParser{}, nil
	})

	route, err := s.Registrator.Register(func() error { return errors.New("boom") }, RouteOptions{Name: "noisy", MaxCronFailures: Ptr(1)})
	require.NoError(t, err)

	s.Startup()
	defer s.Stop()

	_, err = route.Schedule().Cron("@every 1s")
	require.NoError(t, err)

	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		return handler.HasWarning("noisy")
	}, time.Second, 10*time.Millisecond)
}

type everySecondParser struct{ n int }

func (p *everySecondParser) NextRun(now time.Time) (time.Time, error) {
	p.n++
	return now.Add(time.Second), nil
}
func (p *everySecondParser) Expression() string { return "@every 1s" }
