package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/pod-archive/app/archive"
)

// RunRecorder stores batch outcomes for later inspection. It is never
// consulted to decide whether an episode needs archiving.
// Example usage:
//
//	catalog, _ := database.Open("runs.db")
//	defer catalog.Close()
//	batch := NewBatch(root, archiver, catalog)
type RunRecorder interface {
	StartRun(runID string, startedAt time.Time) error
	RecordFeed(runID string, result archive.FeedResult) error
	FinishRun(runID string, finishedAt time.Time) error
}

// Mirror copies a regenerated podcast folder to remote storage under keyPrefix.
type Mirror interface {
	Mirror(ctx context.Context, podcastDir, keyPrefix string) error
}
