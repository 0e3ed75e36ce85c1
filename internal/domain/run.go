package domain

import "time"

// Run statuses. "queued" and "running" count as active; the partial unique
// index on runs enforces at most one active run per project.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCanceled  = "canceled"
)

// Run is one queued or executed bulk pass over a project's feed.
type Run struct {
	ID          string        `json:"id"`
	ProjectID   string        `json:"project_id"`
	Status      string        `json:"status"`
	Attempted   int           `json:"attempted"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Failures    []ItemFailure `json:"failures,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}

// ItemFailure records why a single product failed during a run.
type ItemFailure struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// RunSummary aggregates the outcome of one bulk run. It is returned by the
// orchestrator and persisted onto the run row so pollers can read it; it is
// not a table of its own.
type RunSummary struct {
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []ItemFailure `json:"failures,omitempty"`
}
