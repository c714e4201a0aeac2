package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00"},
		{59 * time.Second, "00:00:59"},
		{42*time.Minute + 500*time.Millisecond, "00:42:01"},
		{2*time.Hour + 3*time.Minute + 4*time.Second, "02:03:04"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDuration(tt.in), tt.in.String())
	}
}

func TestProbeAudioSkipsNonMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ep.m4a")
	require.NoError(t, os.WriteFile(path, []byte("whatever"), 0644))

	info, err := ProbeAudio(path)
	require.NoError(t, err)
	assert.Zero(t, info)
}

func TestProbeAudioGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ep.mp3")
	require.NoError(t, os.WriteFile(path, []byte("definitely not mpeg audio"), 0644))

	info, err := ProbeAudio(path)
	assert.Error(t, err)
	assert.Zero(t, info.Duration)
}
