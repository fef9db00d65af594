// Package engine runs the generation, validation and retry loop for one
// diff against one provider configuration.
package engine

import (
	"time"

	"github.com/hoanghonghuy/commitlab/internal/config"
	"github.com/hoanghonghuy/commitlab/internal/conventional"
	"github.com/hoanghonghuy/commitlab/internal/prompt"
)

// DiffInput is the staged change a message is generated for. ID names the
// corpus fixture and is empty for live git input.
type DiffInput struct {
	ID     string
	Diff   string
	Status string
}

type State int

const (
	StateStart State = iota
	StateGenerating
	StateValidating
	StateAccepted
	StateRejected
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateGenerating:
		return "generating"
	case StateValidating:
		return "validating"
	case StateAccepted:
		return "accepted"
	case StateRejected:
		return "rejected"
	case StateExhausted:
		return "exhausted"
	}
	return "unknown"
}

func (s State) terminal() bool {
	return s == StateAccepted || s == StateExhausted
}

// Rejection reasons that are neither provider error kinds nor validator rules.
const (
	ReasonTimeout       = "timeout"
	ReasonInvalidSchema = "invalid-schema"
)

// Attempt is one provider call and what became of its response.
type Attempt struct {
	N         int    `json:"n"`
	Candidate string `json:"candidate,omitempty"`
	Reason    string `json:"reason,omitempty"` // empty when accepted
	Detail    string `json:"detail,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Result is the outcome of one loop invocation.
type Result struct {
	Message string
	Success bool
	State   State

	// Reason and Detail describe the last rejection when Success is false.
	Reason string
	Detail string

	Retries    int
	LatencyMs  int64
	Attempts   []Attempt
	Violations []string // validator rules hit, in first-seen order

	Verdict conventional.Verdict

	FallbackUsed  bool
	PrimaryReason string // last reason of the primary target when FallbackUsed
}

// Config describes one generation target.
type Config struct {
	Provider string
	Model    string
	Strategy prompt.Strategy

	// Options are passed to the strategy. Feedback is filled in by the loop.
	// The header limit and word bounds also configure the validator.
	Options prompt.Options

	// Constraints labels the word bounds in Options, for reporting.
	Constraints string

	RetryBound  int
	Temperature float64
	MaxTokens   int
	Feedback    config.Feedback
}

// Labels identify the target in observations.
type Labels struct {
	Provider    string
	Model       string
	Strategy    string
	Constraints string
}

// Observer receives attempt and run outcomes. Implementations must be safe
// for concurrent use.
type Observer interface {
	ObserveAttempt(l Labels, outcome string, latency time.Duration)
	ObserveRun(l Labels, res Result)
}
