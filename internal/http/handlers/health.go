package handlers

import (
	"context"
	"net/http"
	"time"
)

// Health is the liveness probe. It depends on nothing.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthDB probes storage connectivity with a single ping.
func (a *App) HealthDB(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.DB.Ping(ctx); err != nil {
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "reason": err.Error()})
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthQueue probes the run queue with a cheap count.
func (a *App) HealthQueue(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	depth, err := a.Runs.QueueDepth(ctx)
	if err != nil {
		a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "reason": err.Error()})
		return
	}
	a.json(w, http.StatusOK, map[string]any{"status": "ok", "queued": depth})
}
