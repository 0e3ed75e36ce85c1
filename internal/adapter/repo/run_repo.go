package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"framepress/internal/domain"
	"framepress/internal/infra"
	"framepress/internal/sqlinline"
)

// RunRepositoryPG implements domain.RunRepository using PostgreSQL. The
// single-active-run rule is enforced by a partial unique index on the runs
// table, so rejection works even across multiple API instances.
type RunRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewRunRepository constructs a new run repository.
func NewRunRepository(sql infra.SQLExecutor) *RunRepositoryPG {
	return &RunRepositoryPG{sql: sql}
}

// Enqueue inserts a queued run. A unique violation means a queued or running
// run already exists for the project and maps to domain.ErrRunActive.
func (r *RunRepositoryPG) Enqueue(ctx context.Context, projectID string) (*domain.Run, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QEnqueueRun, uuid.NewString(), projectID)
	run, err := scanRun(row.Scan)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return nil, domain.ErrRunActive
		}
		return nil, fmt.Errorf("enqueue run: %w", err)
	}
	return run, nil
}

// Claim picks the oldest queued run and marks it running in one statement.
func (r *RunRepositoryPG) Claim(ctx context.Context) (*domain.Run, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QClaimRun)
	run, err := scanRun(row.Scan)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("claim run: %w", err)
	}
	return run, nil
}

// GetByID fetches a run by its identifier.
func (r *RunRepositoryPG) GetByID(ctx context.Context, runID string) (*domain.Run, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectRunByID, runID)
	run, err := scanRun(row.Scan)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// UpdateProgress flushes in-flight counters onto the run row.
func (r *RunRepositoryPG) UpdateProgress(ctx context.Context, runID string, attempted, succeeded, failed int) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateRunProgress, runID, attempted, succeeded, failed)
	return err
}

// MarkCompleted persists the final summary onto the run row.
func (r *RunRepositoryPG) MarkCompleted(ctx context.Context, runID string, summary domain.RunSummary) error {
	failures, err := marshalFailures(summary.Failures)
	if err != nil {
		return err
	}
	_, err = r.sql.Exec(ctx, sqlinline.QCompleteRun, runID, summary.Attempted, summary.Succeeded, summary.Failed, failures)
	return err
}

// MarkFailed records a run-level failure, e.g. an unreachable feed.
func (r *RunRepositoryPG) MarkFailed(ctx context.Context, runID string, reason string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QFailRun, runID, reason)
	return err
}

// MarkCanceled records an abandoned run, e.g. the project was deleted mid-run.
func (r *RunRepositoryPG) MarkCanceled(ctx context.Context, runID string, reason string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QCancelRun, runID, reason)
	return err
}

// QueueDepth counts queued runs. Cheap; used by the queue health probe.
func (r *RunRepositoryPG) QueueDepth(ctx context.Context) (int64, error) {
	var depth int64
	if err := r.sql.QueryRow(ctx, sqlinline.QQueueDepth).Scan(&depth); err != nil {
		return 0, err
	}
	return depth, nil
}

func scanRun(scan func(dest ...any) error) (*domain.Run, error) {
	var run domain.Run
	var failures []byte
	if err := scan(
		&run.ID,
		&run.ProjectID,
		&run.Status,
		&run.Attempted,
		&run.Succeeded,
		&run.Failed,
		&failures,
		&run.Error,
		&run.CreatedAt,
		&run.StartedAt,
		&run.CompletedAt,
	); err != nil {
		return nil, err
	}
	if len(failures) > 0 {
		if err := json.Unmarshal(failures, &run.Failures); err != nil {
			return nil, fmt.Errorf("decode run failures: %w", err)
		}
	}
	return &run, nil
}

func marshalFailures(failures []domain.ItemFailure) ([]byte, error) {
	if len(failures) == 0 {
		return []byte(`[]`), nil
	}
	data, err := json.Marshal(failures)
	if err != nil {
		return nil, fmt.Errorf("encode run failures: %w", err)
	}
	return data, nil
}

var _ domain.RunRepository = (*RunRepositoryPG)(nil)
