package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const sidecarExt = ".json"

// Sidecar is the metadata record stored next to each archived audio file.
// Fields the archiver does not model are kept in Extra and written back
// untouched; the typed fields win when both carry the same key.
type Sidecar struct {
	Title           string
	PublishedAt     *time.Time
	AudioURL        string
	Filename        string
	Filesize        int64
	LocalURL        string
	ImageFilename   string
	Summary         string
	Author          string
	Subtitle        string
	Duration        string
	GUID            string
	EnclosureLength int64
	EnclosureType   string

	Extra map[string]any
}

type sidecarFields struct {
	Title           string     `json:"title,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	AudioURL        string     `json:"audio_url,omitempty"`
	Filename        string     `json:"filename,omitempty"`
	Filesize        int64      `json:"filesize"`
	LocalURL        string     `json:"local_url,omitempty"`
	ImageFilename   string     `json:"image_filename,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	Author          string     `json:"author,omitempty"`
	Subtitle        string     `json:"subtitle,omitempty"`
	Duration        string     `json:"duration,omitempty"`
	GUID            string     `json:"guid,omitempty"`
	EnclosureLength int64      `json:"enclosure_length,omitempty"`
	EnclosureType   string     `json:"enclosure_type,omitempty"`
}

var typedKeys = []string{
	"title", "published_at", "audio_url", "filename", "filesize", "local_url", "image_filename",
	"summary", "author", "subtitle", "duration", "guid", "enclosure_length", "enclosure_type",
}

func (s Sidecar) fields() sidecarFields {
	return sidecarFields{
		Title:           s.Title,
		PublishedAt:     s.PublishedAt,
		AudioURL:        s.AudioURL,
		Filename:        s.Filename,
		Filesize:        s.Filesize,
		LocalURL:        s.LocalURL,
		ImageFilename:   s.ImageFilename,
		Summary:         s.Summary,
		Author:          s.Author,
		Subtitle:        s.Subtitle,
		Duration:        s.Duration,
		GUID:            s.GUID,
		EnclosureLength: s.EnclosureLength,
		EnclosureType:   s.EnclosureType,
	}
}

func (s Sidecar) MarshalJSON() ([]byte, error) {
	typed, err := json.Marshal(s.fields())
	if err != nil {
		return nil, err
	}

	var merged map[string]any
	if err := json.Unmarshal(typed, &merged); err != nil {
		return nil, err
	}

	for k, v := range s.Extra {
		if _, ok := merged[k]; ok || isTypedKey(k) {
			continue
		}
		merged[k] = v
	}

	return json.Marshal(merged)
}

func (s *Sidecar) UnmarshalJSON(data []byte) error {
	var typed sidecarFields
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, k := range typedKeys {
		delete(all, k)
	}

	*s = Sidecar{
		Title:           typed.Title,
		PublishedAt:     typed.PublishedAt,
		AudioURL:        typed.AudioURL,
		Filename:        typed.Filename,
		Filesize:        typed.Filesize,
		LocalURL:        typed.LocalURL,
		ImageFilename:   typed.ImageFilename,
		Summary:         typed.Summary,
		Author:          typed.Author,
		Subtitle:        typed.Subtitle,
		Duration:        typed.Duration,
		GUID:            typed.GUID,
		EnclosureLength: typed.EnclosureLength,
		EnclosureType:   typed.EnclosureType,
		Extra:           all,
	}
	return nil
}

func isTypedKey(k string) bool {
	for _, t := range typedKeys {
		if t == k {
			return true
		}
	}
	return false
}

func ReadSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sidecar: %w", err)
	}

	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode sidecar %s: %w", filepath.Base(path), err)
	}
	return &s, nil
}

// WriteSidecar writes through a temp file so a crash never leaves a partial
// sidecar that passes the existence check.
func WriteSidecar(path string, s *Sidecar) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sidecar: %w", err)
	}

	return WriteFileAtomic(path, append(data, '\n'))
}

// WriteFileAtomic replaces path with data via a temp file in the same directory.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}
