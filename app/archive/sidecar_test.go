package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecarRoundTripKeepsExtraFields(t *testing.T) {
	published := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "ep.json")

	in := &Sidecar{
		Title:       "Ep 1",
		PublishedAt: &published,
		Filename:    "ep.mp3",
		Filesize:    42,
		Extra: map[string]any{
			"categories": []any{"news"},
			"title":      "ignored, typed field wins",
		},
	}
	require.NoError(t, WriteSidecar(path, in))

	out, err := ReadSidecar(path)
	require.NoError(t, err)
	assert.Equal(t, "Ep 1", out.Title)
	assert.Equal(t, "ep.mp3", out.Filename)
	assert.Equal(t, int64(42), out.Filesize)
	require.NotNil(t, out.PublishedAt)
	assert.True(t, published.Equal(*out.PublishedAt))
	assert.Equal(t, map[string]any{"categories": []any{"news"}}, out.Extra)
}

func TestSidecarAlwaysWritesFilesize(t *testing.T) {
	data, err := json.Marshal(Sidecar{Title: "x"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "filesize")
	assert.NotContains(t, raw, "guid")
}

func TestReadSidecarErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadSidecar(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	_, err = ReadSidecar(bad)
	assert.ErrorContains(t, err, "bad.json")
}

func TestWriteFileAtomicReplaces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "archive.xml")

	require.NoError(t, WriteFileAtomic(path, []byte("one")))
	require.NoError(t, WriteFileAtomic(path, []byte("two")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}
