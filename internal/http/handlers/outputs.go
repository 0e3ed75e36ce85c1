package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"

	"framepress/internal/domain"
	"framepress/pkg/zip"
)

// OutputsList handles GET /v1/projects/{projectID}/outputs. Supports a
// free-text filter over product ids and returns both the unfiltered total
// and the filtered count, which the paginated-table consumer needs.
func (a *App) OutputsList(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}

	search := r.URL.Query().Get("search")
	limit := queryInt(r, "limit", 50, 100)
	offset := queryInt(r, "offset", 0, 1<<30)

	total, filtered, rows, err := a.Outputs.Page(r.Context(), project.ID, search, offset, limit)
	if err != nil {
		a.Logger.Error().Err(err).Str("project_id", project.ID).Msg("outputs: page failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list outputs")
		return
	}
	if rows == nil {
		rows = []domain.Output{}
	}

	a.json(w, http.StatusOK, map[string]any{
		"total":    total,
		"filtered": filtered,
		"items":    rows,
	})
}

// OutputsImage handles GET /v1/projects/{projectID}/outputs/{productID}/image,
// streaming the composited blob.
func (a *App) OutputsImage(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}
	productID := chi.URLParam(r, "productID")

	output, err := a.Outputs.GetByProduct(r.Context(), project.ID, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "output not found")
			return
		}
		a.Logger.Error().Err(err).Str("project_id", project.ID).Msg("outputs: load failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load output")
		return
	}
	if output.Status != domain.OutputStatusSucceeded || output.StorageKey == "" {
		a.error(w, http.StatusNotFound, "not_found", "output has no image")
		return
	}

	data, err := a.Blobs.Read(r.Context(), output.StorageKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "output blob missing")
			return
		}
		a.Logger.Error().Err(err).Str("storage_key", output.StorageKey).Msg("outputs: blob read failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read output image")
		return
	}

	w.Header().Set("Content-Type", contentTypeForKey(output.StorageKey))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// OutputsArchive handles GET /v1/projects/{projectID}/outputs/archive,
// returning every succeeded output as one zip download.
func (a *App) OutputsArchive(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}

	outputs, err := a.Outputs.ListSucceeded(r.Context(), project.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("project_id", project.ID).Msg("outputs: archive list failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list outputs")
		return
	}
	if len(outputs) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no succeeded outputs to archive")
		return
	}

	entries := make([]zip.Entry, 0, len(outputs))
	for _, output := range outputs {
		data, err := a.Blobs.Read(r.Context(), output.StorageKey)
		if err != nil {
			a.Logger.Warn().Err(err).Str("storage_key", output.StorageKey).Msg("outputs: blob missing during archive")
			continue
		}
		entries = append(entries, zip.Entry{Filename: path.Base(output.StorageKey), Data: data})
	}
	if len(entries) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no output blobs available")
		return
	}

	archive, err := zip.Archive(entries)
	if err != nil {
		a.Logger.Error().Err(err).Str("project_id", project.ID).Msg("outputs: archive build failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", project.ID+"-outputs.zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)
}

func contentTypeForKey(key string) string {
	if path.Ext(key) == ".png" {
		return "image/png"
	}
	return "image/jpeg"
}
