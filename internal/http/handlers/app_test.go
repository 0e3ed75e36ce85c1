package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"framepress/internal/domain"
	"framepress/internal/infra"
)

var errUnexpectedCall = fmt.Errorf("unexpected repository call")

type stubProjects struct {
	getByID        func(ctx context.Context, projectID string) (*domain.FrameProject, error)
	create         func(ctx context.Context, project *domain.FrameProject) error
	list           func(ctx context.Context, limit, offset int) ([]domain.FrameProject, error)
	setRect        func(ctx context.Context, projectID string, rect domain.Rect) error
	del            func(ctx context.Context, projectID string) error
	setRectCalls   int
	mu             sync.Mutex
}

func (s *stubProjects) Create(ctx context.Context, project *domain.FrameProject) error {
	if s.create == nil {
		return errUnexpectedCall
	}
	return s.create(ctx, project)
}

func (s *stubProjects) GetByID(ctx context.Context, projectID string) (*domain.FrameProject, error) {
	if s.getByID == nil {
		return nil, errUnexpectedCall
	}
	return s.getByID(ctx, projectID)
}

func (s *stubProjects) List(ctx context.Context, limit, offset int) ([]domain.FrameProject, error) {
	if s.list == nil {
		return nil, errUnexpectedCall
	}
	return s.list(ctx, limit, offset)
}

func (s *stubProjects) SetRect(ctx context.Context, projectID string, rect domain.Rect) error {
	s.mu.Lock()
	s.setRectCalls++
	s.mu.Unlock()
	if s.setRect == nil {
		return errUnexpectedCall
	}
	return s.setRect(ctx, projectID, rect)
}

func (s *stubProjects) SetStatus(context.Context, string, string) error { return errUnexpectedCall }

func (s *stubProjects) UpdateProgress(context.Context, string, domain.ProjectProgress) error {
	return errUnexpectedCall
}

func (s *stubProjects) Delete(ctx context.Context, projectID string) error {
	if s.del == nil {
		return errUnexpectedCall
	}
	return s.del(ctx, projectID)
}

func (s *stubProjects) Exists(context.Context, string) (bool, error) {
	return false, errUnexpectedCall
}

type stubOutputs struct {
	page          func(ctx context.Context, projectID, search string, offset, limit int) (int64, int64, []domain.Output, error)
	getByProduct  func(ctx context.Context, projectID, productID string) (*domain.Output, error)
	listSucceeded func(ctx context.Context, projectID string) ([]domain.Output, error)
}

func (s *stubOutputs) Upsert(context.Context, *domain.Output) error { return errUnexpectedCall }

func (s *stubOutputs) Page(ctx context.Context, projectID, search string, offset, limit int) (int64, int64, []domain.Output, error) {
	if s.page == nil {
		return 0, 0, nil, errUnexpectedCall
	}
	return s.page(ctx, projectID, search, offset, limit)
}

func (s *stubOutputs) GetByProduct(ctx context.Context, projectID, productID string) (*domain.Output, error) {
	if s.getByProduct == nil {
		return nil, errUnexpectedCall
	}
	return s.getByProduct(ctx, projectID, productID)
}

func (s *stubOutputs) ListSucceeded(ctx context.Context, projectID string) ([]domain.Output, error) {
	if s.listSucceeded == nil {
		return nil, errUnexpectedCall
	}
	return s.listSucceeded(ctx, projectID)
}

type stubRuns struct {
	enqueue    func(ctx context.Context, projectID string) (*domain.Run, error)
	getByID    func(ctx context.Context, runID string) (*domain.Run, error)
	queueDepth func(ctx context.Context) (int64, error)
}

func (s *stubRuns) Enqueue(ctx context.Context, projectID string) (*domain.Run, error) {
	if s.enqueue == nil {
		return nil, errUnexpectedCall
	}
	return s.enqueue(ctx, projectID)
}

func (s *stubRuns) Claim(context.Context) (*domain.Run, error) { return nil, errUnexpectedCall }

func (s *stubRuns) GetByID(ctx context.Context, runID string) (*domain.Run, error) {
	if s.getByID == nil {
		return nil, errUnexpectedCall
	}
	return s.getByID(ctx, runID)
}

func (s *stubRuns) UpdateProgress(context.Context, string, int, int, int) error {
	return errUnexpectedCall
}

func (s *stubRuns) MarkCompleted(context.Context, string, domain.RunSummary) error {
	return errUnexpectedCall
}

func (s *stubRuns) MarkFailed(context.Context, string, string) error { return errUnexpectedCall }

func (s *stubRuns) MarkCanceled(context.Context, string, string) error { return errUnexpectedCall }

func (s *stubRuns) QueueDepth(ctx context.Context) (int64, error) {
	if s.queueDepth == nil {
		return 0, errUnexpectedCall
	}
	return s.queueDepth(ctx)
}

type stubBlobs struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newStubBlobs() *stubBlobs {
	return &stubBlobs{blobs: make(map[string][]byte)}
}

func (s *stubBlobs) Write(_ context.Context, key string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return key, nil
}

func (s *stubBlobs) Read(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (s *stubBlobs) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

func (s *stubBlobs) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			delete(s.blobs, key)
		}
	}
	return nil
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(context.Context) error { return s.err }

func newTestApp() *App {
	return &App{
		Blobs:  newStubBlobs(),
		Cfg:    &infra.Config{TemplateMaxBytes: 10 << 20},
		Logger: zerolog.Nop(),
	}
}

const testProjectID = "11111111-2222-3333-4444-555555555555"

func testStoredProject() *domain.FrameProject {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &domain.FrameProject{
		ID:             testProjectID,
		Name:           "spring sale",
		TemplateKey:    "templates/" + testProjectID + ".png",
		TemplateFormat: "png",
		TemplateWidth:  800,
		TemplateHeight: 600,
		FeedURL:        "https://shop.example.com/feed.xml",
		Rect:           domain.Rect{X: 50, Y: 50, Width: 200, Height: 150},
		CoordinatesSet: true,
		Status:         domain.ProjectStatusCoordinatesSet,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// routedRequest builds a request carrying chi URL parameters, the way the
// router would hand it to a handler.
func routedRequest(method, target string, body io.Reader, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
