package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lysyi3m/pod-archive/app/cfg"
	"github.com/lysyi3m/pod-archive/app/feed"
	"github.com/lysyi3m/pod-archive/app/publish"
	"github.com/lysyi3m/pod-archive/app/tasks"
	"github.com/lysyi3m/pod-archive/app/tokens"
)

func main() {
	appCfg, err := cfg.LoadRegenerate(os.Args[1:])
	if err != nil {
		cfg.Exit(err)
	}

	cfg.SetupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Feed regeneration aborted", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.RegenerateCfg) error {
	slog.Info("Starting feed regenerator",
		"version", appCfg.Version,
		"archive_dir", appCfg.ArchiveDir,
		"base_url", appCfg.BaseUrl)

	var tokenMap *tokens.Map
	if appCfg.TokenMapPath != "" {
		m, err := tokens.LoadMap(appCfg.TokenMapPath)
		if err != nil {
			return err
		}
		tokenMap = m
		slog.Info("Loaded token map", "path", appCfg.TokenMapPath, "tokens", tokenMap.Len())
	}

	var mirror tasks.Mirror
	if appCfg.S3.Enabled() {
		s3, err := publish.NewS3Mirror(appCfg.S3)
		if err != nil {
			return fmt.Errorf("failed to set up S3 mirror: %w", err)
		}
		mirror = s3
		slog.Info("Mirroring to S3", "endpoint", appCfg.S3.Endpoint, "bucket", appCfg.S3.Bucket)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	regenerator := tasks.NewRegenerator(feed.NewGenerator(appCfg.Version), mirror)
	failed, err := regenerator.RegenerateAll(ctx, appCfg.ArchiveDir, appCfg.BaseUrl, tokenMap)
	if err != nil {
		return err
	}

	slog.Info("Feed regeneration completed", "failed", failed)
	return nil
}
