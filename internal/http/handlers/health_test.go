package handlers

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"framepress/internal/domain"
)

func TestHealth(t *testing.T) {
	app := newTestApp()

	rr := httptest.NewRecorder()
	app.Health(rr, httptest.NewRequest("GET", "/healthz", nil))

	if rr.Code != 200 {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestHealthDB(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		app := newTestApp()
		app.DB = &stubPinger{}

		rr := httptest.NewRecorder()
		app.HealthDB(rr, httptest.NewRequest("GET", "/healthz/db", nil))

		if rr.Code != 200 {
			t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		app := newTestApp()
		app.DB = &stubPinger{err: fmt.Errorf("connection refused")}

		rr := httptest.NewRecorder()
		app.HealthDB(rr, httptest.NewRequest("GET", "/healthz/db", nil))

		if rr.Code != 503 {
			t.Fatalf("status = %d, want 503: %s", rr.Code, rr.Body)
		}
		if !strings.Contains(rr.Body.String(), "unhealthy") {
			t.Fatalf("unexpected payload: %s", rr.Body)
		}
	})
}

func TestHealthQueue(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		app := newTestApp()
		app.Runs = &stubRuns{
			queueDepth: func(context.Context) (int64, error) { return 3, nil },
		}

		rr := httptest.NewRecorder()
		app.HealthQueue(rr, httptest.NewRequest("GET", "/healthz/queue", nil))

		if rr.Code != 200 {
			t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
		}
		if !strings.Contains(rr.Body.String(), `"queued":3`) {
			t.Fatalf("unexpected payload: %s", rr.Body)
		}
	})

	t.Run("query fails", func(t *testing.T) {
		app := newTestApp()
		app.Runs = &stubRuns{
			queueDepth: func(context.Context) (int64, error) { return 0, fmt.Errorf("relation does not exist") },
		}

		rr := httptest.NewRecorder()
		app.HealthQueue(rr, httptest.NewRequest("GET", "/healthz/queue", nil))

		if rr.Code != 503 {
			t.Fatalf("status = %d, want 503: %s", rr.Code, rr.Body)
		}
	})
}

var _ domain.RunRepository = (*stubRuns)(nil)

var _ domain.ProjectRepository = (*stubProjects)(nil)

var _ domain.OutputRepository = (*stubOutputs)(nil)
