package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"framepress/internal/domain"
	"framepress/internal/feed"
	"framepress/internal/infra"
	"framepress/internal/preview"
	"framepress/internal/safeurl"
	"framepress/internal/storage"
)

// Pinger is the slice of the database pool the health probe needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// App bundles the collaborators every handler needs.
type App struct {
	Projects domain.ProjectRepository
	Outputs  domain.OutputRepository
	Runs     domain.RunRepository
	Blobs    storage.BlobStore
	Previews *preview.Engine
	Feeds    *feed.Fetcher
	Safe     *safeurl.Client
	SQL      infra.SQLExecutor
	DB       Pinger
	Cfg      *infra.Config
	Logger   infra.Logger
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": slug, "message": message},
	})
}
