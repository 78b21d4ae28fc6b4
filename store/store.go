// Package store persists the set of SCHEDULED and RUNNING jobs so the
// engine can recover its timer state after a crash or restart. It never
// depends on core: the scheduler depends on Store, not the other way
// around.
package store

import (
	"context"

	"github.com/netresearch/ofelia/serializer"
)

// Store is the durable-store contract. Implementations must make
// AddSchedule/DeleteSchedule/GetSchedules safe for concurrent use: the
// scheduler calls them from the goroutine that schedules a job and from
// the goroutines that settle finished jobs.
type Store interface {
	Startup(ctx context.Context) error
	Shutdown(ctx context.Context) error

	// AddSchedule persists msg, replacing any existing record with the
	// same JobID.
	AddSchedule(ctx context.Context, msg serializer.Message) error
	// DeleteSchedule removes the record for jobID, if any.
	DeleteSchedule(ctx context.Context, jobID string) error
	// GetSchedules returns every persisted record, in no particular
	// order, for crash-recovery re-arming.
	GetSchedules(ctx context.Context) ([]serializer.Message, error)
}
