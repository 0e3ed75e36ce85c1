package repo

import (
	"context"
	"fmt"
	"strings"

	"framepress/internal/domain"
	"framepress/internal/infra"
	"framepress/internal/sqlinline"
)

// likeEscaper neutralizes LIKE wildcards in user-supplied search terms so a
// filter like "100%" matches those literal characters instead of acting as a
// pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// OutputRepositoryPG implements domain.OutputRepository using PostgreSQL.
type OutputRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewOutputRepository constructs a new output repository.
func NewOutputRepository(sql infra.SQLExecutor) *OutputRepositoryPG {
	return &OutputRepositoryPG{sql: sql}
}

// Upsert inserts or replaces the output for (project, product). Re-runs
// update status, storage key and reason in place; id and created_at survive.
func (r *OutputRepositoryPG) Upsert(ctx context.Context, output *domain.Output) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpsertOutput,
		output.ProjectID,
		output.ProductID,
		output.SourceURL,
		output.StorageKey,
		output.Status,
		output.FailureReason,
	)
	if err != nil {
		return fmt.Errorf("upsert output: %w", err)
	}
	return nil
}

// Page returns one page of outputs plus the unfiltered and filtered row
// counts the paginated-table consumer needs. The search term matches
// product ids case-insensitively; empty search matches everything.
func (r *OutputRepositoryPG) Page(ctx context.Context, projectID, search string, offset, limit int) (int64, int64, []domain.Output, error) {
	term := likeEscaper.Replace(search)

	var total, filtered int64
	if err := r.sql.QueryRow(ctx, sqlinline.QCountOutputs, projectID, term).Scan(&total, &filtered); err != nil {
		return 0, 0, nil, fmt.Errorf("count outputs: %w", err)
	}

	rows, err := r.sql.Query(ctx, sqlinline.QPageOutputs, projectID, term, limit, offset)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("page outputs: %w", err)
	}
	defer rows.Close()

	var outputs []domain.Output
	for rows.Next() {
		output, err := scanOutput(rows.Scan)
		if err != nil {
			return 0, 0, nil, err
		}
		outputs = append(outputs, *output)
	}
	return total, filtered, outputs, rows.Err()
}

// GetByProduct fetches one output row.
func (r *OutputRepositoryPG) GetByProduct(ctx context.Context, projectID, productID string) (*domain.Output, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectOutputByProduct, projectID, productID)
	output, err := scanOutput(row.Scan)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return output, nil
}

// ListSucceeded returns every succeeded output for a project, for archive
// downloads.
func (r *OutputRepositoryPG) ListSucceeded(ctx context.Context, projectID string) ([]domain.Output, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListSucceededOutputs, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outputs []domain.Output
	for rows.Next() {
		output, err := scanOutput(rows.Scan)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, *output)
	}
	return outputs, rows.Err()
}

func scanOutput(scan func(dest ...any) error) (*domain.Output, error) {
	var o domain.Output
	if err := scan(
		&o.ID,
		&o.ProjectID,
		&o.ProductID,
		&o.SourceURL,
		&o.StorageKey,
		&o.Status,
		&o.FailureReason,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}

var _ domain.OutputRepository = (*OutputRepositoryPG)(nil)
