package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/lysyi3m/pod-archive/app/archive"
	"github.com/lysyi3m/pod-archive/app/feedlist"
)

const LockFileName = ".archive.lock"

var ErrLocked = errors.New("another archive run is in progress")

type BatchResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Feeds      []archive.FeedResult
}

func (r *BatchResult) FeedCount(status archive.FeedStatus) int {
	n := 0
	for _, f := range r.Feeds {
		if f.Status == status {
			n++
		}
	}
	return n
}

func (r *BatchResult) EpisodeCount(status archive.Status) int {
	n := 0
	for _, f := range r.Feeds {
		n += f.Count(status)
	}
	return n
}

// Batch archives a list of feeds one after another. A failing feed is
// logged and the next one is started.
type Batch struct {
	archiveRoot string
	archiver    *archive.Archiver
	recorder    RunRecorder
}

// NewBatch returns a batch driver. recorder may be nil.
func NewBatch(archiveRoot string, archiver *archive.Archiver, recorder RunRecorder) *Batch {
	return &Batch{
		archiveRoot: archiveRoot,
		archiver:    archiver,
		recorder:    recorder,
	}
}

// Run holds an exclusive lock on the archive root for the whole run and
// returns ErrLocked when another process already has it.
func (b *Batch) Run(ctx context.Context, sources []feedlist.Source) (*BatchResult, error) {
	if err := os.MkdirAll(b.archiveRoot, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive root: %w", err)
	}

	lock := flock.New(filepath.Join(b.archiveRoot, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire archive lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, lock.Path())
	}
	defer lock.Unlock()

	result := &BatchResult{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	b.record(func(r RunRecorder) error { return r.StartRun(result.RunID, result.StartedAt) })

	slog.Debug("Processing feeds", "count", len(sources), "run_id", result.RunID)

	for _, source := range sources {
		if ctx.Err() != nil {
			slog.Warn("Batch interrupted, remaining feeds skipped", "error", ctx.Err())
			break
		}

		task := NewArchiveFeedTask(source, b.archiver)
		b.executeTask(ctx, task)

		result.Feeds = append(result.Feeds, task.Result)
		b.record(func(r RunRecorder) error { return r.RecordFeed(result.RunID, task.Result) })
	}

	result.FinishedAt = time.Now().UTC()
	b.record(func(r RunRecorder) error { return r.FinishRun(result.RunID, result.FinishedAt) })

	slog.Info("Batch completed",
		"run_id", result.RunID,
		"feeds", len(result.Feeds),
		"failed_feeds", result.FeedCount(archive.FeedFailed),
		"empty_feeds", result.FeedCount(archive.FeedEmpty),
		"archived", result.EpisodeCount(archive.StatusArchived),
		"skipped", result.EpisodeCount(archive.StatusSkipped),
		"failed", result.EpisodeCount(archive.StatusFailed))

	return result, nil
}

func (b *Batch) executeTask(ctx context.Context, task TaskInterface) {
	task.Start()

	if err := task.Execute(ctx); err != nil {
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "feed", task.GetFeedName(), "error", err)
	}
}

// record failures only cost catalog history, so they are logged and dropped.
func (b *Batch) record(fn func(RunRecorder) error) {
	if b.recorder == nil {
		return
	}
	if err := fn(b.recorder); err != nil {
		slog.Warn("Failed to record run in catalog", "error", err)
	}
}
