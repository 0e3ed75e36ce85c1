package handlers

import (
	"net/http"

	"framepress/internal/sqlinline"
)

// Metrics handles GET /v1/metrics: application-level counters for dashboards.
func (a *App) Metrics(w http.ResponseWriter, r *http.Request) {
	row := a.SQL.QueryRow(r.Context(), sqlinline.QStatsSummary)

	var projectsTotal, projectsProcessing, projectsCompleted, projectsFailed int64
	var outputsTotal, outputsFailed, runsActive int64
	if err := row.Scan(
		&projectsTotal,
		&projectsProcessing,
		&projectsCompleted,
		&projectsFailed,
		&outputsTotal,
		&outputsFailed,
		&runsActive,
	); err != nil {
		a.Logger.Error().Err(err).Msg("metrics: query failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load metrics")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"projects": map[string]int64{
			"total":      projectsTotal,
			"processing": projectsProcessing,
			"completed":  projectsCompleted,
			"failed":     projectsFailed,
		},
		"outputs": map[string]int64{
			"total":  outputsTotal,
			"failed": outputsFailed,
		},
		"runs": map[string]int64{
			"active": runsActive,
		},
	})
}
