package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3" // registers the "sqlite3" driver

	"github.com/netresearch/ofelia/serializer"
)

// SQLite persists scheduled jobs in a single-table SQLite database, the
// concrete durable backend wired by the daemon when durable=true. The
// message column holds whatever Serializer.Dumpb produced, so SQLite
// never needs to understand the record's internal shape.
type SQLite struct {
	db   *sql.DB
	ser  serializer.Serializer
	path string
}

// NewSQLite opens (creating if necessary) the database at path.
func NewSQLite(path string, ser serializer.Serializer) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", path, err)
	}
	return &SQLite{db: db, ser: ser, path: path}, nil
}

var _ Store = (*SQLite)(nil)

func (s *SQLite) Startup(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS schedules (
		job_id    TEXT PRIMARY KEY,
		func_name TEXT NOT NULL,
		message   BLOB NOT NULL,
		status    TEXT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create schedules table: %w", err)
	}
	return nil
}

func (s *SQLite) Shutdown(context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite store %q: %w", s.path, err)
	}
	return nil
}

func (s *SQLite) AddSchedule(ctx context.Context, msg serializer.Message) error {
	blob, err := s.ser.Dumpb(msg)
	if err != nil {
		return fmt.Errorf("encode schedule %q: %w", msg.JobID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO schedules (job_id, func_name, message, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET func_name=excluded.func_name, message=excluded.message, status=excluded.status`,
		msg.JobID, msg.FuncName, blob, msg.Status,
	)
	if err != nil {
		return fmt.Errorf("persist schedule %q: %w", msg.JobID, err)
	}
	return nil
}

func (s *SQLite) DeleteSchedule(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM schedules WHERE job_id = ?", jobID); err != nil {
		return fmt.Errorf("delete schedule %q: %w", jobID, err)
	}
	return nil
}

func (s *SQLite) GetSchedules(ctx context.Context) ([]serializer.Message, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT message FROM schedules")
	if err != nil {
		return nil, fmt.Errorf("query schedules: %w", err)
	}
	defer rows.Close()

	out := []serializer.Message{}
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan schedule row: %w", err)
		}
		msg, err := s.ser.Loadb(blob)
		if err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return out, nil
}
