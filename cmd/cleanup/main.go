// Command cleanup removes storage blobs that no longer belong to any frame
// project: output directories and template files left behind by deletions
// that happened while storage was unreachable. File backend only.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"framepress/internal/infra"
	"framepress/internal/sqlinline"
)

func main() {
	days := flag.Int("days", 7, "only remove orphaned blobs older than this many days")
	dryRun := flag.Bool("dry-run", false, "report what would be removed without removing it")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.StorageBackend != "file" {
		logger.Fatal().Msg("cleanup: only the file storage backend is supported")
	}

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("cleanup: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)

	known, err := loadProjectIDs(ctx, runner)
	if err != nil {
		logger.Fatal().Err(err).Msg("cleanup: failed to list projects")
	}
	logger.Info().Int("projects", len(known)).Msg("cleanup: loaded project ids")

	cutoff := time.Now().AddDate(0, 0, -*days)
	removed := 0
	removed += sweepOutputDirs(logger, cfg.StoragePath, known, cutoff, *dryRun)
	removed += sweepTemplates(logger, cfg.StoragePath, known, cutoff, *dryRun)

	logger.Info().Int("removed", removed).Bool("dry_run", *dryRun).Msg("cleanup: done")
}

func loadProjectIDs(ctx context.Context, runner *infra.SQLRunner) (map[string]struct{}, error) {
	rows, err := runner.Query(ctx, sqlinline.QListProjectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		known[id] = struct{}{}
	}
	return known, rows.Err()
}

// sweepOutputDirs removes outputs/<projectID> directories whose project no
// longer exists and whose content is older than the cutoff.
func sweepOutputDirs(logger infra.Logger, basePath string, known map[string]struct{}, cutoff time.Time, dryRun bool) int {
	root := filepath.Join(basePath, "outputs")
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Msg("cleanup: read outputs dir failed")
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, ok := known[entry.Name()]; ok {
			continue
		}
		full := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		logger.Info().Str("dir", full).Msg("cleanup: orphaned output dir")
		if dryRun {
			removed++
			continue
		}
		if err := os.RemoveAll(full); err != nil {
			logger.Warn().Err(err).Str("dir", full).Msg("cleanup: remove failed")
			continue
		}
		removed++
	}
	return removed
}

// sweepTemplates removes templates/<projectID>.<ext> files for missing projects.
func sweepTemplates(logger infra.Logger, basePath string, known map[string]struct{}, cutoff time.Time, dryRun bool) int {
	root := filepath.Join(basePath, "templates")
	entries, err := os.ReadDir(root)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn().Err(err).Msg("cleanup: read templates dir failed")
		}
		return 0
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if _, ok := known[id]; ok {
			continue
		}
		full := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		logger.Info().Str("file", full).Msg("cleanup: orphaned template")
		if dryRun {
			removed++
			continue
		}
		if err := os.Remove(full); err != nil {
			logger.Warn().Err(err).Str("file", full).Msg("cleanup: remove failed")
			continue
		}
		removed++
	}
	return removed
}
