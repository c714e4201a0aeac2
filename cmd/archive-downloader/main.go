package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/lysyi3m/pod-archive/app/archive"
	"github.com/lysyi3m/pod-archive/app/cfg"
	"github.com/lysyi3m/pod-archive/app/database"
	"github.com/lysyi3m/pod-archive/app/feed"
	"github.com/lysyi3m/pod-archive/app/feedlist"
	"github.com/lysyi3m/pod-archive/app/tasks"
)

func main() {
	appCfg, err := cfg.LoadArchive(os.Args[1:])
	if err != nil {
		cfg.Exit(err)
	}

	cfg.SetupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Archive run aborted", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.ArchiveCfg) error {
	slog.Info("Starting archive downloader",
		"version", appCfg.Version,
		"feeds_file", appCfg.FeedsFile,
		"archive_dir", appCfg.ArchiveDir)

	sources, err := feedlist.Load(appCfg.FeedsFile)
	if err != nil {
		return err
	}
	slog.Info("Loaded feeds list", "count", len(sources))

	var recorder tasks.RunRecorder
	if appCfg.CatalogPath != "" {
		catalog, err := database.Open(appCfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer catalog.Close()
		recorder = catalog
	}

	// per-request deadlines come from the configured timeout
	httpClient := &http.Client{}

	archiver := archive.NewArchiver(
		appCfg.ArchiveDir,
		feed.NewFetcher(httpClient, feed.NewParser(), appCfg.UserAgent, appCfg.Timeout),
		archive.NewDownloader(httpClient, appCfg.UserAgent, appCfg.Timeout),
		archive.NewImageNormalizer(appCfg.NormalizeImages),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = tasks.NewBatch(appCfg.ArchiveDir, archiver, recorder).Run(ctx, sources)
	return err
}
