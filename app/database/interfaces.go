package database

import (
	"time"

	"github.com/lysyi3m/pod-archive/app/archive"
)

type RunRepository interface {
	StartRun(runID string, startedAt time.Time) error
	RecordFeed(runID string, result archive.FeedResult) error
	FinishRun(runID string, finishedAt time.Time) error

	ListRuns(limit int) ([]Run, error)
	GetRun(runID string) (*Run, error)
	GetFeedOutcomes(runID string) ([]FeedOutcome, error)
	GetEpisodeOutcomes(runID string) ([]EpisodeOutcome, error)
}

var _ RunRepository = (*Catalog)(nil)
