// Package cronparser adapts github.com/robfig/cron/v3's expression
// parser to core.CronParser, the engine's only dependency on a concrete
// cron library.
package cronparser

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/netresearch/ofelia/core"
)

var parseFormat = cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor

// Robfig implements core.CronParser over a parsed robfig/cron/v3
// schedule.
type Robfig struct {
	expr     string
	schedule cron.Schedule
}

// New parses expr and returns a core.CronParser, or an error if expr is
// not a valid cron expression, descriptor (@daily) or @every interval.
func New(expr string) (core.CronParser, error) {
	sched, err := cron.NewParser(parseFormat).Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("cronparser: parse %q: %w", expr, err)
	}
	return &Robfig{expr: expr, schedule: sched}, nil
}

// Factory is a core.CronParserFactory backed by New, wired into
// core.NewScheduler by the daemon.
func Factory(expr string) (core.CronParser, error) { return New(expr) }

func (r *Robfig) NextRun(now time.Time) (time.Time, error) {
	return r.schedule.Next(now), nil
}

func (r *Robfig) Expression() string { return r.expr }
