package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"framepress/internal/adapter/repo"
	"framepress/internal/domain"
	"framepress/internal/feed"
	"framepress/internal/infra"
	"framepress/internal/orchestrator"
	"framepress/internal/safeurl"
	"framepress/internal/storage"
)

// runWorker claims queued bulk runs and executes them through the
// orchestrator, persisting progress and the final summary as it goes.
type runWorker struct {
	ctx      context.Context
	logger   infra.Logger
	cfg      *infra.Config
	projects domain.ProjectRepository
	outputs  domain.OutputRepository
	runs     domain.RunRepository
	blobs    storage.BlobStore
	feeds    *feed.Fetcher
	images   *imageFetcher
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	safeClient := safeurl.New(safeurl.Options{
		Timeout:       cfg.FetchTimeout,
		AllowedHosts:  cfg.FetchHostAllow,
		AllowLoopback: cfg.FetchAllowLoop,
	})

	worker := &runWorker{
		ctx:      ctx,
		logger:   logger,
		cfg:      cfg,
		projects: repo.NewProjectRepository(runner),
		outputs:  repo.NewOutputRepository(runner),
		runs:     repo.NewRunRepository(runner),
		blobs:    blobs,
		feeds:    feed.NewFetcher(safeClient, cfg.FeedMaxBytes, cfg.FeedCacheTTL),
		images:   &imageFetcher{client: safeClient, maxBytes: cfg.ImageMaxBytes},
	}

	if err := worker.Run(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

func (w *runWorker) Run() error {
	w.logger.Info().Msg("worker: started")
	for {
		select {
		case <-w.ctx.Done():
			return w.ctx.Err()
		default:
		}

		run, err := w.runs.Claim(w.ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				w.logger.Error().Err(err).Msg("worker: failed to claim run")
			}
			time.Sleep(w.cfg.RunPollInterval)
			continue
		}

		w.handleRun(run)
	}
}

func (w *runWorker) handleRun(run *domain.Run) {
	w.logger.Info().Str("run_id", run.ID).Str("project_id", run.ProjectID).Msg("worker: picked run")

	project, err := w.projects.GetByID(w.ctx, run.ProjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			w.finishCanceled(run, "project deleted before run started")
			return
		}
		w.finishFailed(run, "load project: "+err.Error())
		return
	}

	templateBytes, err := w.blobs.Read(w.ctx, project.TemplateKey)
	if err != nil {
		w.finishFailed(run, "load template blob: "+err.Error())
		w.setProjectStatus(project.ID, domain.ProjectStatusFailed)
		return
	}

	if err := w.projects.SetStatus(w.ctx, project.ID, domain.ProjectStatusProcessing); err != nil {
		w.logger.Warn().Err(err).Str("project_id", project.ID).Msg("worker: set processing status failed")
	}

	orch := &orchestrator.Orchestrator{
		Feeds:         w.feeds,
		Images:        w.images,
		Blobs:         w.blobs,
		Sink:          w.outputs,
		Gate:          w.projects,
		Concurrency:   w.cfg.RunConcurrency,
		ProgressEvery: w.cfg.RunProgressEvery,
		OnProgress: func(total, attempted, succeeded, failed int) {
			if err := w.runs.UpdateProgress(w.ctx, run.ID, attempted, succeeded, failed); err != nil {
				w.logger.Warn().Err(err).Str("run_id", run.ID).Msg("worker: progress update failed")
			}
			progress := domain.ProjectProgress{Total: total, Processed: attempted, Failed: failed}
			if err := w.projects.UpdateProgress(w.ctx, project.ID, progress); err != nil && !errors.Is(err, domain.ErrNotFound) {
				w.logger.Warn().Err(err).Str("project_id", project.ID).Msg("worker: project progress update failed")
			}
		},
		Logger: w.logger,
	}

	summary, err := orch.Execute(w.ctx, project, templateBytes)
	switch {
	case err == nil:
		if markErr := w.runs.MarkCompleted(w.ctx, run.ID, summary); markErr != nil {
			w.logger.Error().Err(markErr).Str("run_id", run.ID).Msg("worker: mark completed failed")
		}
		w.setProjectStatus(project.ID, domain.ProjectStatusCompleted)
		w.logger.Info().
			Str("run_id", run.ID).
			Int("attempted", summary.Attempted).
			Int("succeeded", summary.Succeeded).
			Int("failed", summary.Failed).
			Msg("worker: run completed")
	case errors.Is(err, orchestrator.ErrCanceled):
		w.finishCanceled(run, err.Error())
	default:
		w.finishFailed(run, err.Error())
		w.setProjectStatus(project.ID, domain.ProjectStatusFailed)
		w.logger.Error().Err(err).Str("run_id", run.ID).Msg("worker: run failed")
	}
}

func (w *runWorker) finishFailed(run *domain.Run, reason string) {
	if err := w.runs.MarkFailed(w.ctx, run.ID, reason); err != nil {
		w.logger.Error().Err(err).Str("run_id", run.ID).Msg("worker: mark failed failed")
	}
}

func (w *runWorker) finishCanceled(run *domain.Run, reason string) {
	if err := w.runs.MarkCanceled(w.ctx, run.ID, reason); err != nil && !errors.Is(err, domain.ErrNotFound) {
		w.logger.Warn().Err(err).Str("run_id", run.ID).Msg("worker: mark canceled failed")
	}
	w.logger.Info().Str("run_id", run.ID).Str("reason", reason).Msg("worker: run canceled")
}

func (w *runWorker) setProjectStatus(projectID, status string) {
	if err := w.projects.SetStatus(w.ctx, projectID, status); err != nil && !errors.Is(err, domain.ErrNotFound) {
		w.logger.Warn().Err(err).Str("project_id", projectID).Msg("worker: set project status failed")
	}
}

// imageFetcher adapts the safeurl client to the orchestrator's ImageFetcher.
type imageFetcher struct {
	client   *safeurl.Client
	maxBytes int64
}

func (f *imageFetcher) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	return f.client.Fetch(ctx, imageURL, safeurl.ImagePolicy(f.maxBytes))
}

func newBlobStore(ctx context.Context, cfg *infra.Config) (storage.BlobStore, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewMinIOStore(ctx, cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
	}
	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	return storage.NewFileStore(storagePath)
}
