package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/pod-archive/app/archive"
	"github.com/lysyi3m/pod-archive/app/feedlist"
)

type ArchiveFeedTask struct {
	Task
	Source   feedlist.Source
	Result   archive.FeedResult
	archiver *archive.Archiver
}

func NewArchiveFeedTask(source feedlist.Source, archiver *archive.Archiver) *ArchiveFeedTask {
	return &ArchiveFeedTask{
		Task:     NewTask(TaskTypeArchiveFeed, source.Name),
		Source:   source,
		archiver: archiver,
	}
}

// Execute archives the feed and keeps the outcome in Result. Only a failed
// feed is reported as an error; failed episodes are part of the result.
func (t *ArchiveFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	t.Result = t.archiver.ArchiveFeed(ctx, t.Source.Name, t.Source.URL)

	switch t.Result.Status {
	case archive.FeedFailed:
		return fmt.Errorf("failed to archive feed: %s", t.Result.Reason)
	case archive.FeedEmpty:
		return nil
	}

	slog.Info("Task completed",
		"type", "ArchiveFeed",
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"total", len(t.Result.Episodes),
		"archived", t.Result.Count(archive.StatusArchived),
		"skipped", t.Result.Count(archive.StatusSkipped),
		"failed", t.Result.Count(archive.StatusFailed))

	return nil
}
