// Package orchestrator drives one bulk run: feed fetch, bounded fan-out of
// per-product compositing tasks, and aggregation into a run summary. It holds
// no process-wide state; each Execute call takes a project value and returns
// a result, so it unit-tests without a database or task system.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"framepress/internal/compositor"
	"framepress/internal/domain"
	"framepress/internal/feed"
)

// ErrCanceled is returned by Execute when the project disappeared mid-run.
// Items resolved before the cancellation keep their outputs; nothing is
// written after it.
var ErrCanceled = errors.New("run canceled: project no longer exists")

// FeedSource supplies parsed product feeds.
type FeedSource interface {
	FetchAndParse(ctx context.Context, feedURL string) (feed.Result, error)
}

// ImageFetcher retrieves product image bytes. Implementations gate every
// fetch through the URL safety validator.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// BlobWriter persists composited output bytes.
type BlobWriter interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// OutputSink records per-product results.
type OutputSink interface {
	Upsert(ctx context.Context, output *domain.Output) error
}

// ProjectGate reports whether the project still exists. Checked before each
// output write so a deleted project stops accumulating rows.
type ProjectGate interface {
	Exists(ctx context.Context, projectID string) (bool, error)
}

// Orchestrator executes bulk runs. Configure once, Execute per run.
type Orchestrator struct {
	Feeds  FeedSource
	Images ImageFetcher
	Blobs  BlobWriter
	Sink   OutputSink
	Gate   ProjectGate

	// Concurrency bounds in-flight item tasks. Items beyond the bound queue
	// on the semaphore rather than spawning unboundedly.
	Concurrency int
	// ProgressEvery controls how often OnProgress fires, in resolved items.
	ProgressEvery int
	// OnProgress, when set, receives counter snapshots during the run and a
	// final one when all items have resolved. total is the number of items
	// dispatched for the run.
	OnProgress func(total, attempted, succeeded, failed int)

	Logger zerolog.Logger
}

// Execute runs the full pipeline for one project.
//
// Configuration problems (bad template, rect out of bounds) abort before any
// I/O. A feed-level failure aborts with zero items attempted. Per-item
// failures are recorded as failed outputs and never abort the run.
func (o *Orchestrator) Execute(ctx context.Context, project *domain.FrameProject, templateBytes []byte) (domain.RunSummary, error) {
	if !project.CoordinatesSet {
		return domain.RunSummary{}, domain.ErrRectNotSet
	}
	tmpl, err := compositor.LoadTemplate(templateBytes)
	if err != nil {
		return domain.RunSummary{}, err
	}
	if err := tmpl.ValidateRect(project.Rect); err != nil {
		return domain.RunSummary{}, err
	}

	result, err := o.Feeds.FetchAndParse(ctx, project.FeedURL)
	if err != nil {
		return domain.RunSummary{}, fmt.Errorf("run %s: %w", project.ID, err)
	}
	for _, skipped := range result.Skipped {
		o.Logger.Warn().
			Str("project_id", project.ID).
			Int("index", skipped.Index).
			Str("reason", skipped.Reason).
			Msg("run: feed item skipped")
	}

	products := dedupeLastWins(result.Products)
	run := &runState{
		orch:    o,
		project: project,
		tmpl:    tmpl,
		total:   len(products),
	}

	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for _, product := range products {
		wg.Add(1)
		sem <- struct{}{}
		go func(p feed.Product) {
			defer wg.Done()
			defer func() { <-sem }()
			run.processItem(ctx, p)
		}(product)
	}
	wg.Wait()

	summary := run.summary()
	if o.OnProgress != nil {
		o.OnProgress(run.total, summary.Attempted, summary.Succeeded, summary.Failed)
	}
	if run.isCanceled() {
		return summary, ErrCanceled
	}
	return summary, nil
}

// runState is the per-run accumulator shared by item goroutines.
type runState struct {
	orch    *Orchestrator
	project *domain.FrameProject
	tmpl    *compositor.Template
	total   int

	mu        sync.Mutex
	resolved  int
	succeeded int
	failed    int
	failures  []domain.ItemFailure
	canceled  bool
}

func (r *runState) processItem(ctx context.Context, product feed.Product) {
	if ctx.Err() != nil || r.isCanceled() {
		return
	}
	// Re-check project existence before doing work for it; a project deleted
	// mid-run must not keep receiving output rows.
	exists, err := r.orch.Gate.Exists(ctx, r.project.ID)
	if err == nil && !exists {
		r.cancel()
		return
	}

	if reason := r.composeAndStore(ctx, product); reason != "" {
		r.record(ctx, product, "", reason)
		return
	}
}

// composeAndStore runs fetch, compose and blob write for one product. It
// records the succeeded output itself and returns "" on success, or the
// failure reason otherwise.
func (r *runState) composeAndStore(ctx context.Context, product feed.Product) string {
	imageBytes, err := r.orch.Images.FetchImage(ctx, product.ImageURL)
	if err != nil {
		return fmt.Sprintf("fetch image: %v", err)
	}

	outputBytes, err := r.tmpl.Compose(r.project.Rect, imageBytes)
	if err != nil {
		return fmt.Sprintf("compose: %v", err)
	}

	key := OutputKey(r.project.ID, product.ID, r.tmpl.Format())
	storedKey, err := r.orch.Blobs.Write(ctx, key, outputBytes)
	if err != nil {
		return fmt.Sprintf("store output: %v", err)
	}

	r.record(ctx, product, storedKey, "")
	return ""
}

// record upserts the item's output and advances the counters. Writes are
// skipped once the run is canceled.
func (r *runState) record(ctx context.Context, product feed.Product, storageKey, failureReason string) {
	if r.isCanceled() {
		return
	}

	status := domain.OutputStatusSucceeded
	if failureReason != "" {
		status = domain.OutputStatusFailed
	}
	output := &domain.Output{
		ProjectID:     r.project.ID,
		ProductID:     product.ID,
		SourceURL:     product.ImageURL,
		StorageKey:    storageKey,
		Status:        status,
		FailureReason: failureReason,
	}
	if err := r.orch.Sink.Upsert(ctx, output); err != nil {
		r.orch.Logger.Error().Err(err).
			Str("project_id", r.project.ID).
			Str("product_id", product.ID).
			Msg("run: output upsert failed")
		failureReason = fmt.Sprintf("persist output: %v", err)
	}

	r.mu.Lock()
	r.resolved++
	if failureReason == "" {
		r.succeeded++
	} else {
		r.failed++
		r.failures = append(r.failures, domain.ItemFailure{ProductID: product.ID, Reason: failureReason})
	}
	flush := r.orch.ProgressEvery > 0 && r.resolved%r.orch.ProgressEvery == 0
	attempted, succeeded, failed := r.resolved, r.succeeded, r.failed
	r.mu.Unlock()

	if flush && r.orch.OnProgress != nil {
		r.orch.OnProgress(r.total, attempted, succeeded, failed)
	}
}

func (r *runState) cancel() {
	r.mu.Lock()
	r.canceled = true
	r.mu.Unlock()
}

func (r *runState) isCanceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canceled
}

func (r *runState) summary() domain.RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	failures := append([]domain.ItemFailure(nil), r.failures...)
	sort.Slice(failures, func(i, j int) bool { return failures[i].ProductID < failures[j].ProductID })
	return domain.RunSummary{
		Attempted: r.resolved,
		Succeeded: r.succeeded,
		Failed:    r.failed,
		Failures:  failures,
	}
}

// dedupeLastWins collapses duplicate product ids, keeping each id's last
// document occurrence in its position. Feeds make no uniqueness promise; the
// upsert key does, so the run must pick one occurrence deterministically.
func dedupeLastWins(products []feed.Product) []feed.Product {
	lastIndex := make(map[string]int, len(products))
	for i, p := range products {
		lastIndex[p.ID] = i
	}
	out := make([]feed.Product, 0, len(lastIndex))
	for i, p := range products {
		if lastIndex[p.ID] == i {
			out = append(out, p)
		}
	}
	return out
}

var productIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// OutputKey builds the blob key for one composited output. When sanitizing
// the product id changed it, a short digest of the raw id is appended so that
// distinct ids like "a/b" and "a_b" cannot share a blob key.
func OutputKey(projectID, productID, format string) string {
	safe := productIDSanitizer.ReplaceAllString(productID, "_")
	if safe != productID {
		sum := sha256.Sum256([]byte(productID))
		safe = fmt.Sprintf("%s-%x", safe, sum[:4])
	}
	ext := ".jpg"
	if format == "png" {
		ext = ".png"
	}
	return fmt.Sprintf("outputs/%s/%s%s", projectID, safe, ext)
}
