package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"framepress/internal/http/handlers"
	"framepress/internal/middleware"
)

func NewRouter(app *handlers.App) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(app.Logger),
		chimw.Recoverer,
	)
	if len(app.Cfg.CORSAllowedOrigin) > 0 {
		r.Use(middleware.CORS(app.Cfg.CORSAllowedOrigin))
	}

	// Preview and run triggers fan out to external fetches, so they carry a
	// per-IP rate limit; reads do not.
	limited := middleware.RateLimit(app.Cfg.RateLimitPerMin, time.Minute)

	// Health
	r.Get("/healthz", app.Health)
	r.Get("/healthz/db", app.HealthDB)
	r.Get("/healthz/queue", app.HealthQueue)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics", app.Metrics)

		r.Route("/projects", func(r chi.Router) {
			r.Post("/", app.ProjectsCreate)
			r.Get("/", app.ProjectsList)

			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", app.ProjectsGet)
				r.Delete("/", app.ProjectsDelete)
				r.Put("/rect", app.ProjectsSetRect)
				r.With(limited).Post("/preview", app.PreviewGenerate)

				r.Route("/runs", func(r chi.Router) {
					r.With(limited).Post("/", app.RunsTrigger)
					r.Get("/{runID}", app.RunsGet)
				})

				r.Route("/outputs", func(r chi.Router) {
					r.Get("/", app.OutputsList)
					r.Get("/archive", app.OutputsArchive)
					r.Get("/{productID}/image", app.OutputsImage)
				})
			})
		})
	})

	return r
}
