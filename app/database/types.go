package database

import (
	"time"
)

type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time // nil while the run is in progress or was killed
	Feeds      int
	Archived   int
	Skipped    int
	Failed     int
}

type FeedOutcome struct {
	FeedName string
	Folder   string
	Status   string
	Reason   string
}

type EpisodeOutcome struct {
	Folder   string
	Key      string // {date}-{slug}
	Title    string
	Filename string
	Filesize int64
	Status   string
	Reason   string
}
