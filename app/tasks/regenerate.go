package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lysyi3m/pod-archive/app/feed"
	"github.com/lysyi3m/pod-archive/app/tokens"
)

// Regenerator rewrites archive.xml for every podcast folder of an archive.
type Regenerator struct {
	generator *feed.Generator
	mirror    Mirror
}

// NewRegenerator returns a Regenerator. mirror may be nil.
func NewRegenerator(generator *feed.Generator, mirror Mirror) *Regenerator {
	return &Regenerator{generator: generator, mirror: mirror}
}

// RegenerateAll processes each non-hidden subdirectory of archiveRoot in
// name order and returns how many folders failed. With a token map, folders
// that have no token fall back to the public /pods prefix.
func (r *Regenerator) RegenerateAll(ctx context.Context, archiveRoot, baseURL string, tokenMap *tokens.Map) (int, error) {
	entries, err := os.ReadDir(archiveRoot)
	if err != nil {
		return 0, fmt.Errorf("failed to read archive root: %w", err)
	}

	var folders []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			folders = append(folders, e.Name())
		}
	}
	slices.Sort(folders)

	failed := 0
	for _, folder := range folders {
		if ctx.Err() != nil {
			return failed, ctx.Err()
		}

		token := ""
		if tokenMap != nil {
			t, ok := tokenMap.TokenFor(folder)
			if !ok {
				slog.Warn("No token for folder, using public prefix", "folder", folder)
			}
			token = t
		}

		task := NewRegenerateFeedTask(filepath.Join(archiveRoot, folder), baseURL, token, r.generator, r.mirror)
		task.Start()
		if err := task.Execute(ctx); err != nil {
			slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "feed", task.GetFeedName(), "error", err)
			failed++
		}
	}

	return failed, nil
}
