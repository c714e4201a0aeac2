package feed

import (
	"time"
)

// Podcast is a fetched feed reduced to what the archiver needs.
type Podcast struct {
	Title       string
	Link        string
	Description string
	Language    string
	Author      string
	ImageURL    string // <image><url> or itunes:image
	Entries     []Entry
}

type Entry struct {
	GUID        string
	Title       string
	Link        string
	Summary     string
	Author      string
	Subtitle    string
	Duration    string
	PublishedAt *time.Time

	EnclosureURL    string // first enclosure only
	EnclosureLength int64  // as reported by the feed
	EnclosureType   string

	ImageURL string // item image, item itunes:image, or the podcast image

	// Raw holds every field of the parsed item for the metadata sidecar.
	Raw map[string]any
}

// Channel is the podcast-level part of a regenerated feed.
type Channel struct {
	Title         string
	Link          string
	Description   string
	SelfURL       string
	Author        string
	Summary       string
	Language      string
	CoverURL      string
	LastBuildDate time.Time
}

// Episode is one <item> of a regenerated feed.
type Episode struct {
	Title           string
	Link            string
	GUID            string
	EnclosureURL    string
	EnclosureType   string
	EnclosureLength int64
	PublishedAt     time.Time
	Description     string
	Author          string
	Subtitle        string
	Duration        string
	ImageURL        string
}
