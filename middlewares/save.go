package middlewares

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/netresearch/ofelia/core"
)

// SaveConfig configures the Save middleware.
type SaveConfig struct {
	// SaveFolder is the directory execution summaries are written to.
	// Leave empty to disable.
	SaveFolder string
	// SaveOnlyOnError, when true, only writes a summary for failed jobs.
	SaveOnlyOnError *bool
}

// NewSave returns a Save middleware, or nil if c is the zero value.
func NewSave(c *SaveConfig) core.Middleware {
	if IsEmpty(c) {
		return nil
	}
	return &Save{*c}
}

// Save writes a JSON summary of every execution to disk, independent of
// the engine's own crash-recovery durable store: it is an audit trail,
// not the source of truth used to re-arm jobs on restart.
type Save struct {
	SaveConfig
}

type executionSummary struct {
	RouteName string    `json:"route_name"`
	JobID     string    `json:"job_id"`
	ExecAt    time.Time `json:"exec_at"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Call lets the route run, then saves a summary of the outcome.
func (m *Save) Call(next core.CallNext, jc *core.JobContext) (any, error) {
	result, err := next(jc)

	if err != nil || !boolVal(m.SaveOnlyOnError) {
		if saveErr := m.saveToDisk(jc, err); saveErr != nil && jc.Logger != nil {
			jc.Logger.Errorf("save error for job %q: %v", jc.Job.ID(), saveErr)
		}
	}

	return result, err
}

func (m *Save) saveToDisk(jc *core.JobContext, jobErr error) error {
	if err := DefaultSanitizer.ValidateSaveFolder(m.SaveFolder); err != nil {
		return fmt.Errorf("invalid save folder: %w", err)
	}
	if err := os.MkdirAll(m.SaveFolder, 0o750); err != nil {
		return fmt.Errorf("mkdir %q: %w", m.SaveFolder, err)
	}

	safeName := SanitizeJobName(jc.Job.RouteName())
	filename := filepath.Join(m.SaveFolder, fmt.Sprintf(
		"%s_%s_%s.json",
		jc.Job.ExecAt().Format("20060102_150405"), safeName, jc.Job.ID(),
	))

	summary := executionSummary{
		RouteName: jc.Job.RouteName(),
		JobID:     jc.Job.ID(),
		ExecAt:    jc.Job.ExecAt(),
		Status:    jc.Job.Status().String(),
	}
	if jobErr != nil {
		summary.Error = jobErr.Error()
	}

	js, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal execution summary: %w", err)
	}
	if err := os.WriteFile(filename, js, 0o600); err != nil {
		return fmt.Errorf("write file %q: %w", filename, err)
	}
	return nil
}
