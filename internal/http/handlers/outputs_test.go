package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"framepress/internal/domain"
)

func TestOutputsListPayload(t *testing.T) {
	app := newTestApp()
	app.Projects = &stubProjects{
		getByID: func(context.Context, string) (*domain.FrameProject, error) {
			return testStoredProject(), nil
		},
	}
	app.Outputs = &stubOutputs{
		page: func(_ context.Context, projectID, search string, offset, limit int) (int64, int64, []domain.Output, error) {
			if search != "mug" || offset != 0 || limit != 50 {
				t.Fatalf("unexpected page params: search=%q offset=%d limit=%d", search, offset, limit)
			}
			return 120, 3, []domain.Output{
				{ProductID: "mug-1", Status: domain.OutputStatusSucceeded, StorageKey: "outputs/p/mug-1.png"},
				{ProductID: "mug-2", Status: domain.OutputStatusFailed, FailureReason: "compose: decode product image"},
			}, nil
		},
	}

	req := routedRequest("GET", "/v1/projects/"+testProjectID+"/outputs?search=mug", nil, map[string]string{"projectID": testProjectID})
	rr := httptest.NewRecorder()

	app.OutputsList(rr, req)

	if rr.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}
	var payload struct {
		Total    int64           `json:"total"`
		Filtered int64           `json:"filtered"`
		Items    []domain.Output `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Total != 120 || payload.Filtered != 3 || len(payload.Items) != 2 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestOutputsListEmptyIsArrayNotNull(t *testing.T) {
	app := newTestApp()
	app.Projects = &stubProjects{
		getByID: func(context.Context, string) (*domain.FrameProject, error) {
			return testStoredProject(), nil
		},
	}
	app.Outputs = &stubOutputs{
		page: func(context.Context, string, string, int, int) (int64, int64, []domain.Output, error) {
			return 0, 0, nil, nil
		},
	}

	req := routedRequest("GET", "/v1/projects/"+testProjectID+"/outputs", nil, map[string]string{"projectID": testProjectID})
	rr := httptest.NewRecorder()

	app.OutputsList(rr, req)

	if !bytes.Contains(rr.Body.Bytes(), []byte(`"items":[]`)) {
		t.Fatalf("empty items not an array: %s", rr.Body)
	}
}

func TestOutputsImageStreamsBlob(t *testing.T) {
	app := newTestApp()
	app.Projects = &stubProjects{
		getByID: func(context.Context, string) (*domain.FrameProject, error) {
			return testStoredProject(), nil
		},
	}
	app.Outputs = &stubOutputs{
		getByProduct: func(_ context.Context, projectID, productID string) (*domain.Output, error) {
			return &domain.Output{
				ProjectID:  projectID,
				ProductID:  productID,
				Status:     domain.OutputStatusSucceeded,
				StorageKey: "outputs/" + projectID + "/sku-1.png",
			}, nil
		},
	}
	imageBytes := []byte("png-bytes")
	_, _ = app.Blobs.Write(context.Background(), "outputs/"+testProjectID+"/sku-1.png", imageBytes)

	req := routedRequest("GET", "/v1/projects/"+testProjectID+"/outputs/sku-1/image", nil,
		map[string]string{"projectID": testProjectID, "productID": "sku-1"})
	rr := httptest.NewRecorder()

	app.OutputsImage(rr, req)

	if rr.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "image/png" {
		t.Fatalf("content type = %q, want image/png", ct)
	}
	if !bytes.Equal(rr.Body.Bytes(), imageBytes) {
		t.Fatal("response body is not the stored blob")
	}
}

func TestOutputsImageFailedOutputHasNoImage(t *testing.T) {
	app := newTestApp()
	app.Projects = &stubProjects{
		getByID: func(context.Context, string) (*domain.FrameProject, error) {
			return testStoredProject(), nil
		},
	}
	app.Outputs = &stubOutputs{
		getByProduct: func(context.Context, string, string) (*domain.Output, error) {
			return &domain.Output{Status: domain.OutputStatusFailed, FailureReason: "fetch image: 404"}, nil
		},
	}

	req := routedRequest("GET", "/v1/projects/"+testProjectID+"/outputs/sku-1/image", nil,
		map[string]string{"projectID": testProjectID, "productID": "sku-1"})
	rr := httptest.NewRecorder()

	app.OutputsImage(rr, req)

	if rr.Code != 404 {
		t.Fatalf("status = %d, want 404: %s", rr.Code, rr.Body)
	}
}

func TestOutputsArchiveBundlesSucceededBlobs(t *testing.T) {
	app := newTestApp()
	app.Projects = &stubProjects{
		getByID: func(context.Context, string) (*domain.FrameProject, error) {
			return testStoredProject(), nil
		},
	}
	app.Outputs = &stubOutputs{
		listSucceeded: func(context.Context, string) ([]domain.Output, error) {
			return []domain.Output{
				{ProductID: "a", Status: domain.OutputStatusSucceeded, StorageKey: "outputs/p/a.png"},
				{ProductID: "b", Status: domain.OutputStatusSucceeded, StorageKey: "outputs/p/b.png"},
			}, nil
		},
	}
	ctx := context.Background()
	_, _ = app.Blobs.Write(ctx, "outputs/p/a.png", []byte("image-a"))
	_, _ = app.Blobs.Write(ctx, "outputs/p/b.png", []byte("image-b"))

	req := routedRequest("GET", "/v1/projects/"+testProjectID+"/outputs/archive", nil, map[string]string{"projectID": testProjectID})
	rr := httptest.NewRecorder()

	app.OutputsArchive(rr, req)

	if rr.Code != 200 {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type = %q, want application/zip", ct)
	}

	reader, err := zip.NewReader(bytes.NewReader(rr.Body.Bytes()), int64(rr.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(reader.File) != 2 {
		t.Fatalf("archive holds %d files, want 2", len(reader.File))
	}
	names := map[string]string{}
	for _, f := range reader.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		names[f.Name] = string(data)
	}
	if names["a.png"] != "image-a" || names["b.png"] != "image-b" {
		t.Fatalf("unexpected archive contents: %v", names)
	}
}

func TestOutputsArchiveNothingSucceeded(t *testing.T) {
	app := newTestApp()
	app.Projects = &stubProjects{
		getByID: func(context.Context, string) (*domain.FrameProject, error) {
			return testStoredProject(), nil
		},
	}
	app.Outputs = &stubOutputs{
		listSucceeded: func(context.Context, string) ([]domain.Output, error) {
			return nil, nil
		},
	}

	req := routedRequest("GET", "/v1/projects/"+testProjectID+"/outputs/archive", nil, map[string]string{"projectID": testProjectID})
	rr := httptest.NewRecorder()

	app.OutputsArchive(rr, req)

	if rr.Code != 404 {
		t.Fatalf("status = %d, want 404: %s", rr.Code, rr.Body)
	}
}
