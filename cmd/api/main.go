package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"framepress/internal/adapter/repo"
	"framepress/internal/feed"
	"framepress/internal/http/handlers"
	httpapi "framepress/internal/http/httpapi"
	"framepress/internal/infra"
	"framepress/internal/preview"
	"framepress/internal/safeurl"
	"framepress/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure blob storage")
	}

	safeClient := safeurl.New(safeurl.Options{
		Timeout:       cfg.FetchTimeout,
		AllowedHosts:  cfg.FetchHostAllow,
		AllowLoopback: cfg.FetchAllowLoop,
	})
	feeds := feed.NewFetcher(safeClient, cfg.FeedMaxBytes, cfg.FeedCacheTTL)
	previews := preview.NewEngine(safeClient, feeds, cfg.ImageMaxBytes, cfg.PreviewMaxWidth, cfg.PreviewMaxHeight)

	app := &handlers.App{
		Projects: repo.NewProjectRepository(runner),
		Outputs:  repo.NewOutputRepository(runner),
		Runs:     repo.NewRunRepository(runner),
		Blobs:    blobs,
		Previews: previews,
		Feeds:    feeds,
		Safe:     safeClient,
		SQL:      runner,
		DB:       dbpool,
		Cfg:      cfg,
		Logger:   logger,
	}

	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
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
