package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"framepress/internal/compositor"
	"framepress/internal/domain"
	"framepress/internal/feed"
	"framepress/internal/preview"
	"framepress/internal/safeurl"
)

type previewRequest struct {
	Rect            *rectRequest `json:"rect"`
	ProductImageURL string       `json:"product_image_url"`
	ProductImageB64 string       `json:"product_image_b64"`
	Guides          bool         `json:"guides"`
}

// PreviewGenerate handles POST /v1/projects/{projectID}/preview. It composes
// a single product image at the requested coordinates and returns it inline,
// without persisting anything, so an operator can tune the rectangle before
// committing it and triggering a bulk run.
func (a *App) PreviewGenerate(w http.ResponseWriter, r *http.Request) {
	project, ok := a.loadProject(w, r)
	if !ok {
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	rect := project.Rect
	if req.Rect != nil {
		rect = domain.Rect{X: req.Rect.X, Y: req.Rect.Y, Width: req.Rect.Width, Height: req.Rect.Height}
	} else if !project.CoordinatesSet {
		a.error(w, http.StatusUnprocessableEntity, "validation_error", "overlay rectangle not set and no rect provided")
		return
	}
	if err := rect.Validate(project.TemplateWidth, project.TemplateHeight); err != nil {
		a.error(w, http.StatusUnprocessableEntity, "bounds_error", err.Error())
		return
	}

	var src preview.ProductSource
	switch {
	case req.ProductImageB64 != "":
		data, err := base64.StdEncoding.DecodeString(req.ProductImageB64)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "product_image_b64 is not valid base64")
			return
		}
		src.Bytes = data
	case req.ProductImageURL != "":
		src.URL = req.ProductImageURL
	default:
		if project.FeedURL == "" {
			a.error(w, http.StatusUnprocessableEntity, "validation_error", "no product image and project has no feed url")
			return
		}
	}

	templateBytes, err := a.Blobs.Read(r.Context(), project.TemplateKey)
	if err != nil {
		a.Logger.Error().Err(err).Str("project_id", project.ID).Msg("preview: template blob missing")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load template")
		return
	}
	tmpl, err := compositor.LoadTemplate(templateBytes)
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	result, err := a.Previews.Render(r.Context(), tmpl, rect, project.FeedURL, src, req.Guides)
	if err != nil {
		switch {
		case errors.Is(err, safeurl.ErrDisallowed), errors.Is(err, safeurl.ErrContentType), errors.Is(err, safeurl.ErrTooLarge):
			a.error(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		case errors.Is(err, feed.ErrUnavailable), errors.Is(err, feed.ErrMalformed):
			a.error(w, http.StatusBadGateway, "feed_error", err.Error())
		case errors.Is(err, compositor.ErrDecode):
			a.error(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		case errors.Is(err, preview.ErrNoProduct):
			a.error(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		default:
			a.Logger.Error().Err(err).Str("project_id", project.ID).Msg("preview: render failed")
			a.error(w, http.StatusInternalServerError, "internal", "preview failed")
		}
		return
	}

	a.json(w, http.StatusOK, result)
}
