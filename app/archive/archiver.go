// Package archive downloads podcast episodes into a local folder tree,
// one audio file and one JSON sidecar per episode.
package archive

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/lysyi3m/pod-archive/app/feed"
	"github.com/lysyi3m/pod-archive/app/slug"
)

const (
	undated          = "undated"
	untitled         = "untitled"
	defaultAudioExt  = ".mp3"
	defaultImageExt  = ".jpg"
	coverName        = "cover"
	maxExtensionSize = 6
)

// CoverExtensions lists cover file extensions in lookup order.
var CoverExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

type Archiver struct {
	root       string
	fetcher    *feed.Fetcher
	downloader *Downloader
	normalizer *ImageNormalizer
}

func NewArchiver(root string, fetcher *feed.Fetcher, downloader *Downloader, normalizer *ImageNormalizer) *Archiver {
	return &Archiver{
		root:       root,
		fetcher:    fetcher,
		downloader: downloader,
		normalizer: normalizer,
	}
}

// FolderName is the on-disk folder for a podcast display name.
func FolderName(podcastName string) string {
	return strings.ReplaceAll(podcastName, " ", "_")
}

// Filenames holds the names derived from an entry's idempotence key.
type Filenames struct {
	Base    string // {date}-{slug}
	Audio   string
	Sidecar string
}

func EpisodeFilenames(entry feed.Entry) Filenames {
	date := undated
	if entry.PublishedAt != nil {
		date = entry.PublishedAt.UTC().Format("2006-01-02")
	}

	title := cmp.Or(entry.Title, untitled)
	base := date + "-" + cmp.Or(slug.Slugify(title), untitled)

	return Filenames{
		Base:    base,
		Audio:   base + extensionFromURL(entry.EnclosureURL, defaultAudioExt),
		Sidecar: base + sidecarExt,
	}
}

// extensionFromURL takes the extension of the URL path, ignoring the query.
func extensionFromURL(rawURL, fallback string) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	ext := path.Ext(p)
	if len(ext) < 2 || len(ext) > maxExtensionSize {
		return fallback
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return fallback
		}
	}
	return ext
}

// ArchiveFeed fetches one feed and archives every entry into its folder.
// Nothing here returns an error: feed and episode failures end up in the
// result so the caller can move on to the next feed.
func (a *Archiver) ArchiveFeed(ctx context.Context, name, feedURL string) FeedResult {
	folder := FolderName(name)
	result := FeedResult{Name: name, Folder: folder}
	podcastDir := filepath.Join(a.root, folder)

	if err := os.MkdirAll(podcastDir, 0755); err != nil {
		result.Status = FeedFailed
		result.Reason = fmt.Sprintf("failed to create podcast directory: %v", err)
		return result
	}

	podcast, err := a.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		result.Status = FeedFailed
		result.Reason = err.Error()
		return result
	}

	if len(podcast.Entries) == 0 {
		slog.Warn("No entries found in feed", "feed", name, "url", feedURL)
		result.Status = FeedEmpty
		return result
	}

	if podcast.ImageURL != "" {
		a.archiveCover(ctx, podcast.ImageURL, podcastDir)
	}

	for _, entry := range podcast.Entries {
		if err := ctx.Err(); err != nil {
			result.Status = FeedFailed
			result.Reason = fmt.Sprintf("interrupted: %v", err)
			return result
		}

		episode := a.ArchiveEpisode(ctx, entry, podcastDir)
		switch episode.Status {
		case StatusArchived:
			slog.Info("Episode archived", "feed", name, "file", episode.Filename, "size", episode.Filesize)
		case StatusFailed:
			slog.Error("Failed to archive episode", "feed", name, "title", cmp.Or(entry.Title, "unknown"), "error", episode.Reason)
		}
		result.Episodes = append(result.Episodes, episode)
	}

	result.Status = FeedDone
	return result
}

func (a *Archiver) archiveCover(ctx context.Context, imageURL, podcastDir string) {
	name := coverName + extensionFromURL(imageURL, defaultImageExt)
	if _, ok := existingImage(podcastDir, name); ok {
		return
	}

	dest := filepath.Join(podcastDir, name)
	if _, err := a.downloader.Download(ctx, imageURL, dest); err != nil {
		slog.Warn("Failed to download cover image", "url", imageURL, "error", err)
		return
	}

	final := a.normalizer.Run(dest)
	slog.Info("Downloaded cover image", "path", final)
}

// ArchiveEpisode downloads one entry unless both its audio file and its
// sidecar already exist. It never touches the network for a complete episode.
func (a *Archiver) ArchiveEpisode(ctx context.Context, entry feed.Entry, podcastDir string) EpisodeResult {
	names := EpisodeFilenames(entry)
	result := EpisodeResult{Key: names.Base, Title: entry.Title, Filename: names.Audio}

	audioPath := filepath.Join(podcastDir, names.Audio)
	sidecarPath := filepath.Join(podcastDir, names.Sidecar)

	audioExists := fileExists(audioPath)
	if audioExists && fileExists(sidecarPath) {
		result.Status = StatusSkipped
		return result
	}

	if entry.EnclosureURL == "" {
		result.Status = StatusFailed
		result.Reason = "entry has no enclosure"
		return result
	}

	if !audioExists {
		if _, err := a.downloader.Download(ctx, entry.EnclosureURL, audioPath); err != nil {
			result.Status = StatusFailed
			result.Reason = err.Error()
			return result
		}
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		result.Status = StatusFailed
		result.Reason = fmt.Sprintf("failed to stat audio: %v", err)
		return result
	}

	sidecar := &Sidecar{
		Title:           entry.Title,
		PublishedAt:     entry.PublishedAt,
		AudioURL:        entry.EnclosureURL,
		Filename:        names.Audio,
		Filesize:        info.Size(),
		LocalURL:        fmt.Sprintf("/pods/%s/%s", filepath.Base(podcastDir), names.Audio),
		Summary:         entry.Summary,
		Author:          entry.Author,
		Subtitle:        entry.Subtitle,
		Duration:        entry.Duration,
		GUID:            entry.GUID,
		EnclosureLength: entry.EnclosureLength,
		EnclosureType:   entry.EnclosureType,
		Extra:           entry.Raw,
	}

	if entry.ImageURL != "" {
		sidecar.ImageFilename = a.archiveEpisodeImage(ctx, entry.ImageURL, podcastDir, names.Base)
	}

	if sidecar.Duration == "" || sidecar.Author == "" {
		a.fillFromAudio(sidecar, audioPath)
	}

	if err := WriteSidecar(sidecarPath, sidecar); err != nil {
		result.Status = StatusFailed
		result.Reason = err.Error()
		return result
	}

	result.Status = StatusArchived
	result.Filesize = info.Size()
	return result
}

// archiveEpisodeImage returns the image file name to record, or "" when the
// image could not be fetched. Image problems never fail the episode.
func (a *Archiver) archiveEpisodeImage(ctx context.Context, imageURL, podcastDir, base string) string {
	name := base + extensionFromURL(imageURL, defaultImageExt)
	if existing, ok := existingImage(podcastDir, name); ok {
		return existing
	}

	dest := filepath.Join(podcastDir, name)
	if _, err := a.downloader.Download(ctx, imageURL, dest); err != nil {
		slog.Warn("Failed to download episode image", "url", imageURL, "error", err)
		return ""
	}

	final := a.normalizer.Run(dest)
	slog.Debug("Downloaded episode image", "path", final)
	return filepath.Base(final)
}

func (a *Archiver) fillFromAudio(sidecar *Sidecar, audioPath string) {
	info, err := ProbeAudio(audioPath)
	if err != nil {
		slog.Debug("Audio probe failed", "path", audioPath, "error", err)
	}

	if sidecar.Duration == "" && info.Duration > 0 {
		sidecar.Duration = FormatDuration(info.Duration)
	}
	if sidecar.Author == "" {
		sidecar.Author = info.Artist
	}
}

// existingImage finds name, or the .jpg it is normalized into, in dir.
func existingImage(dir, name string) (string, bool) {
	if fileExists(filepath.Join(dir, name)) {
		return name, true
	}

	normalized := strings.TrimSuffix(name, filepath.Ext(name)) + normalizedExt
	if fileExists(filepath.Join(dir, normalized)) {
		return normalized, true
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
