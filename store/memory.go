package store

import (
	"context"
	"sync"

	"github.com/netresearch/ofelia/serializer"
)

// Memory is an in-memory Store. It satisfies the interface but loses all
// state on process exit. Nothing in this module installs it by itself: a
// scheduler without a durable store (nil Scheduler.Store) skips
// persistence altogether.
type Memory struct {
	mu   sync.Mutex
	rows map[string]serializer.Message
}

// NewMemory returns a ready-to-use in-memory store.
func NewMemory() *Memory {
	return &Memory{rows: make(map[string]serializer.Message)}
}

var _ Store = (*Memory)(nil)

func (m *Memory) Startup(context.Context) error  { return nil }
func (m *Memory) Shutdown(context.Context) error { return nil }

func (m *Memory) AddSchedule(_ context.Context, msg serializer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[msg.JobID] = msg
	return nil
}

func (m *Memory) DeleteSchedule(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, jobID)
	return nil
}

func (m *Memory) GetSchedules(context.Context) ([]serializer.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]serializer.Message, 0, len(m.rows))
	for _, msg := range m.rows {
		out = append(out, msg)
	}
	return out, nil
}
