package core

import (
	"context"

	"github.com/netresearch/ofelia/serializer"
)

// DurableStore is the engine's view of the durable store (C5): persist
// the scheduled-but-not-yet-completed set, load it back on startup. Any
// type satisfying this structurally (store.Memory, store.SQLite) can be
// plugged in without core importing the store package.
type DurableStore interface {
	Startup(ctx context.Context) error
	Shutdown(ctx context.Context) error
	AddSchedule(ctx context.Context, msg serializer.Message) error
	DeleteSchedule(ctx context.Context, jobID string) error
	GetSchedules(ctx context.Context) ([]serializer.Message, error)
}
