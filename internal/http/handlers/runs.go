package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"framepress/internal/domain"
)

// RunsTrigger handles POST /v1/projects/{projectID}/runs. The run executes on
// the worker, off this request path; the response carries a handle to poll.
// A second trigger while a run is queued or running returns 409.
func (a *App) RunsTrigger(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}

	if !project.CoordinatesSet {
		a.error(w, http.StatusUnprocessableEntity, "configuration_error", "overlay rectangle not set")
		return
	}
	if project.FeedURL == "" {
		a.error(w, http.StatusUnprocessableEntity, "configuration_error", "project has no feed url")
		return
	}
	if err := project.Rect.Validate(project.TemplateWidth, project.TemplateHeight); err != nil {
		a.error(w, http.StatusUnprocessableEntity, "configuration_error", err.Error())
		return
	}

	run, err := a.Runs.Enqueue(r.Context(), project.ID)
	if err != nil {
		if errors.Is(err, domain.ErrRunActive) {
			a.error(w, http.StatusConflict, "already_running", "a run is already active for this project")
			return
		}
		a.Logger.Error().Err(err).Str("project_id", project.ID).Msg("runs: enqueue failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to enqueue run")
		return
	}

	a.json(w, http.StatusAccepted, map[string]any{
		"run_id": run.ID,
		"status": run.Status,
	})
}

// RunsGet handles GET /v1/projects/{projectID}/runs/{runID}, the polling
// endpoint for a triggered run.
func (a *App) RunsGet(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "projectID")
	runID := chi.URLParam(r, "runID")
	if _, err := uuid.Parse(runID); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid run id")
		return
	}

	run, err := a.Runs.GetByID(r.Context(), runID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "run not found")
			return
		}
		a.Logger.Error().Err(err).Str("run_id", runID).Msg("runs: load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load run")
		return
	}
	if run.ProjectID != projectID {
		a.error(w, http.StatusNotFound, "not_found", "run not found")
		return
	}

	a.json(w, http.StatusOK, run)
}
