package repo

import (
	"context"
	"fmt"

	"framepress/internal/domain"
	"framepress/internal/infra"
	"framepress/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository using PostgreSQL.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewProjectRepository constructs a new frame project repository.
func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// Create inserts a new frame project in draft status.
func (r *ProjectRepositoryPG) Create(ctx context.Context, project *domain.FrameProject) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertProject,
		project.ID,
		project.OwnerID,
		project.Name,
		project.TemplateKey,
		project.TemplateFormat,
		project.TemplateWidth,
		project.TemplateHeight,
		project.FeedURL,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetByID fetches a project by its identifier.
func (r *ProjectRepositoryPG) GetByID(ctx context.Context, projectID string) (*domain.FrameProject, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectProjectByID, projectID)
	project, err := scanProject(row.Scan)
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return project, nil
}

// List returns projects ordered newest first.
func (r *ProjectRepositoryPG) List(ctx context.Context, limit, offset int) ([]domain.FrameProject, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListProjects, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.FrameProject
	for rows.Next() {
		project, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *project)
	}
	return projects, rows.Err()
}

// SetRect stores validated overlay coordinates and promotes a draft project
// to coordinates_set. Bounds checking happens before this call.
func (r *ProjectRepositoryPG) SetRect(ctx context.Context, projectID string, rect domain.Rect) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateProjectRect, projectID, rect.X, rect.Y, rect.Width, rect.Height)
	if err != nil {
		return fmt.Errorf("update rect: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// SetStatus updates the project lifecycle status.
func (r *ProjectRepositoryPG) SetStatus(ctx context.Context, projectID, status string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateProjectStatus, projectID, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProgress stores the run progress counters shown on the project detail.
func (r *ProjectRepositoryPG) UpdateProgress(ctx context.Context, projectID string, progress domain.ProjectProgress) error {
	_, err := r.sql.Exec(ctx, sqlinline.QUpdateProjectProgress, projectID, progress.Total, progress.Processed, progress.Failed)
	return err
}

// Delete removes the project. Outputs and runs cascade at the schema level.
func (r *ProjectRepositoryPG) Delete(ctx context.Context, projectID string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QDeleteProject, projectID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Exists reports whether the project is still present. Used by in-flight run
// items to detect mid-run deletion.
func (r *ProjectRepositoryPG) Exists(ctx context.Context, projectID string) (bool, error) {
	var exists bool
	if err := r.sql.QueryRow(ctx, sqlinline.QProjectExists, projectID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanProject(scan func(dest ...any) error) (*domain.FrameProject, error) {
	var p domain.FrameProject
	if err := scan(
		&p.ID,
		&p.OwnerID,
		&p.Name,
		&p.TemplateKey,
		&p.TemplateFormat,
		&p.TemplateWidth,
		&p.TemplateHeight,
		&p.FeedURL,
		&p.Rect.X,
		&p.Rect.Y,
		&p.Rect.Width,
		&p.Rect.Height,
		&p.CoordinatesSet,
		&p.Status,
		&p.Progress.Total,
		&p.Progress.Processed,
		&p.Progress.Failed,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
