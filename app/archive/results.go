package archive

type Status string

const (
	StatusArchived Status = "archived"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
)

type EpisodeResult struct {
	Key      string // {date}-{slug}
	Title    string
	Filename string
	Filesize int64
	Status   Status
	Reason   string
}

type FeedStatus string

const (
	FeedDone   FeedStatus = "done"
	FeedEmpty  FeedStatus = "empty"
	FeedFailed FeedStatus = "failed"
)

type FeedResult struct {
	Name     string
	Folder   string
	Status   FeedStatus
	Reason   string
	Episodes []EpisodeResult
}

func (r FeedResult) Count(status Status) int {
	n := 0
	for _, e := range r.Episodes {
		if e.Status == status {
			n++
		}
	}
	return n
}
