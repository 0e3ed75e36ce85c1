package domain

import "time"

// Output statuses.
const (
	OutputStatusSucceeded = "succeeded"
	OutputStatusFailed    = "failed"
)

// Output is the persisted result of compositing one product onto a project's
// frame template. There is at most one Output per (project, product) pair;
// re-runs upsert in place rather than accumulating rows.
type Output struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	ProductID     string    `json:"product_id"`
	SourceURL     string    `json:"source_url"`
	StorageKey    string    `json:"storage_key,omitempty"`
	Status        string    `json:"status"`
	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
