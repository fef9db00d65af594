// Package runlog stores generation outcomes as newline-delimited JSON.
package runlog

import (
	"time"

	"github.com/google/uuid"

	"github.com/hoanghonghuy/commitlab/internal/engine"
)

const SchemaVersion = "1.0"

// Record is one logged loop invocation. Records are only ever appended;
// their order in the file is their identity.
type Record struct {
	SchemaVersion string    `json:"schema_version"`
	ID            string    `json:"id"`
	ExperimentID  string    `json:"experiment_id,omitempty"`
	Timestamp     time.Time `json:"timestamp"`

	Provider string `json:"provider"`
	Model    string `json:"model"`
	Strategy string `json:"strategy"`
	DiffID   string `json:"diff_id,omitempty"`

	// Constraints names the word-count constraint set, if any.
	Constraints string `json:"constraints,omitempty"`

	Success    bool     `json:"success"`
	Message    string   `json:"message,omitempty"`
	Words      int      `json:"words,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	Detail     string   `json:"detail,omitempty"`
	Violations []string `json:"violations,omitempty"`

	Retries      int   `json:"retries"`
	RetryBound   int   `json:"retry_bound"`
	LatencyMs    int64 `json:"latency_ms"`
	FallbackUsed bool  `json:"fallback_used,omitempty"`
}

// NewRecord builds the record for one finished invocation.
func NewRecord(experimentID string, l engine.Labels, retryBound int, in engine.DiffInput, res engine.Result, now time.Time) Record {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}

	rec := Record{
		SchemaVersion: SchemaVersion,
		ID:            id.String(),
		ExperimentID:  experimentID,
		Timestamp:     now.UTC(),
		Provider:      l.Provider,
		Model:         l.Model,
		Strategy:      l.Strategy,
		DiffID:        in.ID,
		Constraints:   l.Constraints,
		Success:       res.Success,
		Message:       res.Message,
		Reason:        res.Reason,
		Detail:        res.Detail,
		Violations:    res.Violations,
		Retries:       res.Retries,
		RetryBound:    retryBound,
		LatencyMs:     res.LatencyMs,
		FallbackUsed:  res.FallbackUsed,
	}
	if res.Success {
		rec.Words = res.Verdict.WordCount()
	}
	return rec
}
