package domain

import "context"

// ProjectRepository persists FrameProject records.
type ProjectRepository interface {
	Create(ctx context.Context, project *FrameProject) error
	GetByID(ctx context.Context, projectID string) (*FrameProject, error)
	List(ctx context.Context, limit, offset int) ([]FrameProject, error)
	SetRect(ctx context.Context, projectID string, rect Rect) error
	SetStatus(ctx context.Context, projectID, status string) error
	UpdateProgress(ctx context.Context, projectID string, progress ProjectProgress) error
	Delete(ctx context.Context, projectID string) error
	Exists(ctx context.Context, projectID string) (bool, error)
}

// OutputRepository persists per-product compositing results, keyed on
// (project_id, product_id).
type OutputRepository interface {
	Upsert(ctx context.Context, output *Output) error
	Page(ctx context.Context, projectID, search string, offset, limit int) (total, filtered int64, rows []Output, err error)
	GetByProduct(ctx context.Context, projectID, productID string) (*Output, error)
	ListSucceeded(ctx context.Context, projectID string) ([]Output, error)
}

// RunRepository manages the bulk-run queue.
type RunRepository interface {
	// Enqueue inserts a queued run for the project. Returns ErrRunActive when
	// a queued or running run already exists for it.
	Enqueue(ctx context.Context, projectID string) (*Run, error)
	// Claim atomically picks the oldest queued run and marks it running.
	// Returns ErrNotFound when the queue is empty.
	Claim(ctx context.Context) (*Run, error)
	GetByID(ctx context.Context, runID string) (*Run, error)
	UpdateProgress(ctx context.Context, runID string, attempted, succeeded, failed int) error
	MarkCompleted(ctx context.Context, runID string, summary RunSummary) error
	MarkFailed(ctx context.Context, runID string, reason string) error
	MarkCanceled(ctx context.Context, runID string, reason string) error
	QueueDepth(ctx context.Context) (int64, error)
}
