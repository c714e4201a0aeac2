package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/pod-archive/app/api"
	"github.com/lysyi3m/pod-archive/app/cfg"
	"github.com/lysyi3m/pod-archive/app/database"
	"github.com/lysyi3m/pod-archive/app/tokens"
)

func main() {
	appCfg, err := cfg.LoadServe(os.Args[1:])
	if err != nil {
		cfg.Exit(err)
	}

	cfg.SetupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.ServeCfg) error {
	slog.Info("Starting archive server", "version", appCfg.Version, "archive_dir", appCfg.ArchiveDir)

	var tokenMap *tokens.Map
	if appCfg.TokenMapPath != "" {
		m, err := tokens.LoadMap(appCfg.TokenMapPath)
		if err != nil {
			return err
		}
		tokenMap = m
		slog.Info("Loaded token map", "path", appCfg.TokenMapPath, "tokens", tokenMap.Len())
	}

	var runs database.RunRepository
	if appCfg.CatalogPath != "" {
		catalog, err := database.Open(appCfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to open catalog: %w", err)
		}
		defer catalog.Close()
		runs = catalog
	}

	handler := api.NewHandler(appCfg.ArchiveDir, tokenMap, runs, appCfg.Version)
	server := api.NewServer(handler, appCfg.APIKey)

	// no write timeout: audio files are large
	httpServer := &http.Server{
		Addr:        ":" + appCfg.Port,
		Handler:     server,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}

	slog.Info("Archive server shutdown complete")
	return nil
}
