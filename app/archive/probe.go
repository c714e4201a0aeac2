package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/tcolgate/mp3"
)

// AudioInfo is what can be read back from a downloaded file when the feed
// left it out.
type AudioInfo struct {
	Duration time.Duration
	Artist   string
}

// ProbeAudio reads the ID3 artist and, for MP3 files, sums the MPEG frame
// durations. Other formats return an empty AudioInfo.
func ProbeAudio(path string) (AudioInfo, error) {
	var info AudioInfo
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return info, nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true, ParseFrames: []string{"Artist"}})
	if err == nil {
		info.Artist = strings.TrimSpace(tag.Artist())
		tag.Close()
	}

	duration, err := mp3Duration(path)
	if err != nil {
		return info, err
	}
	info.Duration = duration

	return info, nil
}

func mp3Duration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	decoder := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)
	for {
		if err := decoder.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, fmt.Errorf("failed to decode mp3 frame: %w", err)
		}
		total += frame.Duration()
		frames++
	}

	if frames == 0 {
		return 0, fmt.Errorf("no mp3 frames found")
	}
	return total, nil
}

// FormatDuration renders d as HH:MM:SS, the itunes:duration form.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
