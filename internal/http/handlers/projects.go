package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"framepress/internal/compositor"
	"framepress/internal/domain"
)

type projectResponse struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	FeedURL        string                 `json:"feed_url,omitempty"`
	TemplateWidth  int                    `json:"template_width"`
	TemplateHeight int                    `json:"template_height"`
	TemplateFormat string                 `json:"template_format"`
	Rect           *domain.Rect           `json:"rect,omitempty"`
	Status         string                 `json:"status"`
	Progress       domain.ProjectProgress `json:"progress"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

func toProjectResponse(p *domain.FrameProject) projectResponse {
	resp := projectResponse{
		ID:             p.ID,
		Name:           p.Name,
		FeedURL:        p.FeedURL,
		TemplateWidth:  p.TemplateWidth,
		TemplateHeight: p.TemplateHeight,
		TemplateFormat: p.TemplateFormat,
		Status:         p.Status,
		Progress:       p.Progress,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.CoordinatesSet {
		rect := p.Rect
		resp.Rect = &rect
	}
	return resp
}

// ProjectsCreate handles POST /v1/projects. Multipart form: name, template
// (the frame image file) and an optional feed_url. The template is decoded
// and validated exactly once, here.
func (a *App) ProjectsCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(a.Cfg.TemplateMaxBytes + 64*1024); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		a.error(w, http.StatusUnprocessableEntity, "validation_error", "name is required")
		return
	}

	feedURL := r.FormValue("feed_url")
	if feedURL != "" {
		if err := a.Safe.Validate(feedURL); err != nil {
			a.error(w, http.StatusUnprocessableEntity, "validation_error", fmt.Sprintf("feed_url rejected: %v", err))
			return
		}
	}

	file, header, err := r.FormFile("template")
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "validation_error", "template file is required")
		return
	}
	defer file.Close()

	if header.Size > a.Cfg.TemplateMaxBytes {
		a.error(w, http.StatusUnprocessableEntity, "validation_error", "template file too large")
		return
	}
	templateBytes, err := io.ReadAll(io.LimitReader(file, a.Cfg.TemplateMaxBytes+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read template file")
		return
	}
	if int64(len(templateBytes)) > a.Cfg.TemplateMaxBytes {
		a.error(w, http.StatusUnprocessableEntity, "validation_error", "template file too large")
		return
	}

	tmpl, err := compositor.LoadTemplate(templateBytes)
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	projectID := uuid.NewString()
	templateKey := fmt.Sprintf("templates/%s.%s", projectID, templateExt(tmpl.Format()))
	storedKey, err := a.Blobs.Write(r.Context(), templateKey, templateBytes)
	if err != nil {
		a.Logger.Error().Err(err).Msg("projects: store template failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store template")
		return
	}

	width, height := tmpl.Size()
	project := &domain.FrameProject{
		ID:             projectID,
		Name:           name,
		TemplateKey:    storedKey,
		TemplateFormat: tmpl.Format(),
		TemplateWidth:  width,
		TemplateHeight: height,
		FeedURL:        feedURL,
		Status:         domain.ProjectStatusDraft,
	}
	if err := a.Projects.Create(r.Context(), project); err != nil {
		a.Logger.Error().Err(err).Msg("projects: create failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create project")
		return
	}

	a.json(w, http.StatusCreated, toProjectResponse(project))
}

// ProjectsList handles GET /v1/projects.
func (a *App) ProjectsList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 100)
	offset := queryInt(r, "offset", 0, 1<<30)

	projects, err := a.Projects.List(r.Context(), limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Msg("projects: list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list projects")
		return
	}

	items := make([]projectResponse, 0, len(projects))
	for i := range projects {
		items = append(items, toProjectResponse(&projects[i]))
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// ProjectsGet handles GET /v1/projects/{projectID}.
func (a *App) ProjectsGet(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, toProjectResponse(project))
}

// ProjectsDelete handles DELETE /v1/projects/{projectID}. Output rows and
// runs cascade in the database; blobs are removed here. An in-flight run
// detects the deletion through its project gate and stops writing.
func (a *App) ProjectsDelete(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}

	if err := a.Projects.Delete(r.Context(), project.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "project not found")
			return
		}
		a.Logger.Error().Err(err).Msg("projects: delete failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to delete project")
		return
	}

	if err := a.Blobs.Delete(r.Context(), project.TemplateKey); err != nil {
		a.Logger.Warn().Err(err).Str("project_id", project.ID).Msg("projects: template blob cleanup failed")
	}
	if err := a.Blobs.DeletePrefix(r.Context(), "outputs/"+project.ID); err != nil {
		a.Logger.Warn().Err(err).Str("project_id", project.ID).Msg("projects: output blob cleanup failed")
	}
	if project.FeedURL != "" && a.Feeds != nil {
		a.Feeds.Invalidate(project.FeedURL)
	}

	w.WriteHeader(http.StatusNoContent)
}

type rectRequest struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ProjectsSetRect handles PUT /v1/projects/{projectID}/rect. A rectangle not
// fully inside the template is rejected and the project is left untouched.
func (a *App) ProjectsSetRect(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}

	var req rectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	rect := domain.Rect{X: req.X, Y: req.Y, Width: req.Width, Height: req.Height}
	if err := rect.Validate(project.TemplateWidth, project.TemplateHeight); err != nil {
		a.error(w, http.StatusUnprocessableEntity, "bounds_error", err.Error())
		return
	}

	if err := a.Projects.SetRect(r.Context(), project.ID, rect); err != nil {
		a.Logger.Error().Err(err).Msg("projects: set rect failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store coordinates")
		return
	}

	project.Rect = rect
	project.CoordinatesSet = true
	if project.Status == domain.ProjectStatusDraft {
		project.Status = domain.ProjectStatusCoordinatesSet
	}
	a.json(w, http.StatusOK, toProjectResponse(project))
}

// loadProject resolves the {projectID} route parameter, writing the error
// response itself when the project cannot be loaded.
func (a *App) loadProject(w http.ResponseWriter, r *http.Request) (*domain.FrameProject, bool) {
	projectID := chi.URLParam(r, "projectID")
	if _, err := uuid.Parse(projectID); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid project id")
		return nil, false
	}
	project, err := a.Projects.GetByID(r.Context(), projectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "project not found")
			return nil, false
		}
		a.Logger.Error().Err(err).Msg("projects: load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load project")
		return nil, false
	}
	return project, true
}

func templateExt(format string) string {
	if format == "png" {
		return "png"
	}
	return "jpg"
}

func queryInt(r *http.Request, key string, fallback, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	if v > max {
		return max
	}
	return v
}
