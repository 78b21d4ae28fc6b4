package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/ofelia/serializer"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(":memory:", serializer.JSON{})
	require.NoError(t, err)
	require.NoError(t, s.Startup(context.Background()))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func TestSQLite_GetSchedulesEmptyIsNotNil(t *testing.T) {
	s := newTestSQLite(t)
	rows, err := s.GetSchedules(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestSQLite_AddThenGetRoundTrips(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	msg := serializer.Message{
		JobID:     "j1",
		FuncName:  "cleanup",
		ExecAt:    100,
		Arguments: []any{"a", float64(1)},
		Status:    "scheduled",
	}
	require.NoError(t, s.AddSchedule(ctx, msg))

	rows, err := s.GetSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, msg, rows[0])
}

func TestSQLite_AddSameJobIDUpserts(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.AddSchedule(ctx, serializer.Message{JobID: "j1", FuncName: "a", Status: "scheduled"}))
	require.NoError(t, s.AddSchedule(ctx, serializer.Message{JobID: "j1", FuncName: "b", Status: "running"}))

	rows, err := s.GetSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b", rows[0].FuncName)
	assert.Equal(t, "running", rows[0].Status)
}

func TestSQLite_DeleteRemovesSchedule(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, s.AddSchedule(ctx, serializer.Message{JobID: "j1"}))
	require.NoError(t, s.AddSchedule(ctx, serializer.Message{JobID: "j2"}))
	require.NoError(t, s.DeleteSchedule(ctx, "j1"))

	rows, err := s.GetSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "j2", rows[0].JobID)
}

func TestSQLite_StartupIsIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Startup(context.Background()))
}

func TestSQLite_ShutdownClosesDB(t *testing.T) {
	s, err := NewSQLite(":memory:", serializer.JSON{})
	require.NoError(t, err)
	require.NoError(t, s.Startup(context.Background()))
	require.NoError(t, s.Shutdown(context.Background()))

	_, err = s.GetSchedules(context.Background())
	require.Error(t, err)
}
