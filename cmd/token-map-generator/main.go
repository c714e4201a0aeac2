package main

import (
	"log/slog"
	"os"

	"github.com/lysyi3m/pod-archive/app/cfg"
	"github.com/lysyi3m/pod-archive/app/tokens"
)

func main() {
	appCfg, err := cfg.LoadTokenMap(os.Args[1:])
	if err != nil {
		cfg.Exit(err)
	}

	cfg.SetupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Token map generation failed", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.TokenMapCfg) error {
	gen := tokens.NewRandomGenerator()
	if appCfg.Seeded {
		gen = tokens.NewSeededGenerator(appCfg.Seed)
	}

	entries, err := tokens.CreateTokenMap(appCfg.ArchiveDir, gen)
	if err != nil {
		return err
	}

	for _, e := range entries {
		slog.Debug("Token assigned", "folder", e.Folder, "token", e.Token)
	}

	backup, err := tokens.WriteTokenMap(entries, appCfg.MapFile, appCfg.BackupDir)
	if err != nil {
		return err
	}
	if backup != "" {
		slog.Info("Previous token map backed up", "path", backup)
	}

	reference, err := tokens.WriteReferenceJSON(entries, appCfg.ArchiveDir)
	if err != nil {
		return err
	}

	slog.Info("Token map written",
		"path", appCfg.MapFile,
		"reference", reference,
		"folders", len(entries),
		"seeded", gen.Seeded())
	return nil
}
