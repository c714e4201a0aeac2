package tasks

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/lysyi3m/pod-archive/app/archive"
	"github.com/lysyi3m/pod-archive/app/feed"
)

const (
	ArchiveFileName = "archive.xml"
	untitledEpisode = "Untitled Episode"
)

// URLPrefix is where the files of one podcast folder are served from. With
// a token the folder name does not appear in it.
func URLPrefix(baseURL, folder, token string) string {
	return strings.TrimRight(baseURL, "/") + "/" + KeyPrefix(folder, token)
}

// KeyPrefix is URLPrefix without the base URL.
func KeyPrefix(folder, token string) string {
	if token != "" {
		return "secure/" + url.PathEscape(token)
	}
	return "pods/" + url.PathEscape(folder)
}

type GenerateResult struct {
	Path     string
	Items    int
	Excluded int
}

// GenerateFeed writes archive.xml for one podcast folder from its sidecars,
// newest first by file name. Sidecars whose audio cannot be found are left
// out of the document.
func GenerateFeed(generator *feed.Generator, podcastDir, title, baseURL, token string) (*GenerateResult, error) {
	prefix := URLPrefix(baseURL, filepath.Base(podcastDir), token)

	dirEntries, err := os.ReadDir(podcastDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read podcast directory: %w", err)
	}

	var files, sidecars []string
	for _, e := range dirEntries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		files = append(files, e.Name())
		if filepath.Ext(e.Name()) == ".json" {
			sidecars = append(sidecars, e.Name())
		}
	}
	slices.Sort(files)
	slices.Sort(sidecars)
	slices.Reverse(sidecars)

	result := &GenerateResult{Path: filepath.Join(podcastDir, ArchiveFileName)}
	var episodes []feed.Episode

	for _, name := range sidecars {
		sidecar, err := archive.ReadSidecar(filepath.Join(podcastDir, name))
		if err != nil {
			slog.Warn("Skipping unreadable sidecar", "folder", filepath.Base(podcastDir), "file", name, "error", err)
			result.Excluded++
			continue
		}

		base := strings.TrimSuffix(name, ".json")
		audio := resolveAudio(sidecar, base, files)
		if audio == "" {
			slog.Debug("No audio file for sidecar, excluded", "folder", filepath.Base(podcastDir), "file", name)
			result.Excluded++
			continue
		}

		episodes = append(episodes, buildEpisode(podcastDir, prefix, audio, sidecar))
	}

	channel := feed.Channel{
		Title:       title,
		Link:        prefix,
		Description: fmt.Sprintf("Archived feed for %s", title),
		SelfURL:     prefix + "/" + ArchiveFileName,
	}
	if cover := findCover(podcastDir); cover != "" {
		channel.CoverURL = prefix + "/" + url.PathEscape(cover)
	}

	document, err := generator.Run(channel, episodes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate feed: %w", err)
	}

	if err := archive.WriteFileAtomic(result.Path, []byte(document)); err != nil {
		return nil, err
	}

	result.Items = len(episodes)
	return result, nil
}

// resolveAudio prefers the stored file name when it is on disk. Otherwise it
// takes the first file named {base}.* that is not a sidecar, an image or a
// partial download. files must be sorted.
func resolveAudio(sidecar *archive.Sidecar, base string, files []string) string {
	if sidecar.Filename != "" {
		if _, found := slices.BinarySearch(files, sidecar.Filename); found {
			return sidecar.Filename
		}
	}

	for _, name := range files {
		if !strings.HasPrefix(name, base+".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext == ".json" || ext == ".part" || slices.Contains(archive.CoverExtensions, ext) {
			continue
		}
		return name
	}
	return ""
}

func buildEpisode(podcastDir, prefix, audio string, sidecar *archive.Sidecar) feed.Episode {
	audioURL := prefix + "/" + url.PathEscape(audio)

	length := cmp.Or(sidecar.EnclosureLength, sidecar.Filesize)
	if info, err := os.Stat(filepath.Join(podcastDir, audio)); err == nil {
		length = info.Size()
	}

	var published time.Time
	if sidecar.PublishedAt != nil {
		published = *sidecar.PublishedAt
	} else if t, ok := legacyPublished(sidecar.Extra); ok {
		published = t
	}

	episode := feed.Episode{
		Title:           cmp.Or(sidecar.Title, untitledEpisode),
		Link:            audioURL,
		GUID:            cmp.Or(sidecar.GUID, extraString(sidecar.Extra, "id"), audio),
		EnclosureURL:    audioURL,
		EnclosureType:   feed.EnclosureMIME(audio),
		EnclosureLength: length,
		PublishedAt:     published,
		Description:     sidecar.Summary,
		Author:          cmp.Or(sidecar.Author, extraString(sidecar.Extra, "itunes_author")),
		Subtitle:        cmp.Or(sidecar.Subtitle, extraString(sidecar.Extra, "itunes_subtitle")),
		Duration:        cmp.Or(sidecar.Duration, extraString(sidecar.Extra, "itunes_duration")),
	}
	if sidecar.ImageFilename != "" {
		episode.ImageURL = prefix + "/" + url.PathEscape(sidecar.ImageFilename)
	}
	return episode
}

// Sidecars written by the older archiver keep the feed entry's own keys:
// "published_parsed" as a UTC [year, month, day, hour, min, sec, ...] list,
// "published" as the raw feed date, "id" and the itunes_* fields.
var legacyDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC3339,
}

func legacyPublished(extra map[string]any) (time.Time, bool) {
	if t, ok := structTime(extra["published_parsed"]); ok {
		return t, true
	}

	raw := strings.TrimSpace(extraString(extra, "published"))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range legacyDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func structTime(v any) (time.Time, bool) {
	parts, ok := v.([]any)
	if !ok || len(parts) < 6 {
		return time.Time{}, false
	}

	var n [6]int
	for i := range n {
		f, ok := parts[i].(float64)
		if !ok {
			return time.Time{}, false
		}
		n[i] = int(f)
	}
	return time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], n[5], 0, time.UTC), true
}

func extraString(extra map[string]any, key string) string {
	s, _ := extra[key].(string)
	return s
}

func findCover(podcastDir string) string {
	for _, ext := range archive.CoverExtensions {
		name := "cover" + ext
		if info, err := os.Stat(filepath.Join(podcastDir, name)); err == nil && !info.IsDir() {
			return name
		}
	}
	return ""
}

type RegenerateFeedTask struct {
	Task
	PodcastDir string
	BaseURL    string
	Token      string
	Result     *GenerateResult
	generator  *feed.Generator
	mirror     Mirror
}

// NewRegenerateFeedTask builds the task for one folder. The podcast title is
// the folder name with underscores turned back into spaces.
func NewRegenerateFeedTask(podcastDir, baseURL, token string, generator *feed.Generator, mirror Mirror) *RegenerateFeedTask {
	title := strings.ReplaceAll(filepath.Base(podcastDir), "_", " ")
	return &RegenerateFeedTask{
		Task:       NewTask(TaskTypeRegenerateFeed, title),
		PodcastDir: podcastDir,
		BaseURL:    baseURL,
		Token:      token,
		generator:  generator,
		mirror:     mirror,
	}
}

func (t *RegenerateFeedTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := GenerateFeed(t.generator, t.PodcastDir, t.FeedName, t.BaseURL, t.Token)
	if err != nil {
		return err
	}
	t.Result = result

	slog.Info("Task completed",
		"type", "RegenerateFeed",
		"feed", t.FeedName,
		"duration", t.GetDuration(),
		"items", result.Items,
		"excluded", result.Excluded,
		"secure", t.Token != "")

	if t.mirror != nil {
		keyPrefix := KeyPrefix(filepath.Base(t.PodcastDir), t.Token)
		if err := t.mirror.Mirror(ctx, t.PodcastDir, keyPrefix); err != nil {
			return fmt.Errorf("failed to mirror folder: %w", err)
		}
	}

	return nil
}
