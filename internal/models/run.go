package models

import (
	"time"

	"github.com/customeros/attachstack/internal/enum"
)

// ProcessRequest describes one archival run
type ProcessRequest struct {
	MessageIDs  []string
	Storage     enum.StorageKind
	Convert     bool
	Destination string
}

// ItemResult is the per-message outcome of a run. Failures never propagate
// past the orchestrator; they are recorded here instead.
type ItemResult struct {
	MessageID string           `json:"messageId"`
	Outcome   enum.ItemOutcome `json:"outcome"`
	Reason    string           `json:"reason,omitempty"`
	Folder    string           `json:"folder,omitempty"`
	Stored    []*StoredItem    `json:"stored,omitempty"`
}

// RunSummary reports the aggregate counts for a run
type RunSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// RunResult is the terminal output of one orchestration pass
type RunResult struct {
	RunID       string        `json:"runId"`
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
	Results     []*ItemResult `json:"results"`
	Summary     RunSummary    `json:"summary"`
}

func (r *RunResult) Tally() {
	summary := RunSummary{Total: len(r.Results)}
	for _, item := range r.Results {
		switch item.Outcome {
		case enum.OutcomeSucceeded:
			summary.Succeeded++
		case enum.OutcomeFailed:
			summary.Failed++
		case enum.OutcomeSkipped:
			summary.Skipped++
		}
	}
	r.Summary = summary
}
