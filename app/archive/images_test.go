package archive

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 50 {
		img.Set(x, 0, color.Black)
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, nil))
	require.NoError(t, f.Close())
}

func imageSize(t *testing.T, path string) (int, int, string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	return cfg.Width, cfg.Height, format
}

func TestNormalizePNG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cover.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 300, 200), 0644))

	got := NewImageNormalizer(true).Run(path)

	assert.Equal(t, filepath.Join(dir, "cover.jpg"), got)
	assert.NoFileExists(t, path)
	w, h, format := imageSize(t, got)
	assert.Equal(t, CoverSize, w)
	assert.Equal(t, CoverSize, h)
	assert.Equal(t, "jpeg", format)
}

func TestNormalizeOversizedJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.jpg")
	writeJPEG(t, path, 3200, 3200)

	got := NewImageNormalizer(true).Run(path)

	assert.Equal(t, path, got)
	w, h, _ := imageSize(t, got)
	assert.Equal(t, CoverSize, w)
	assert.Equal(t, CoverSize, h)
}

func TestNormalizeLeavesCompliantJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.jpg")
	writeJPEG(t, path, 1500, 1500)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	got := NewImageNormalizer(true).Run(path)

	assert.Equal(t, path, got)
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestNormalizeKeepsUndecodableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(path, []byte("<html>not an image</html>"), 0644))

	got := NewImageNormalizer(true).Run(path)

	assert.Equal(t, path, got)
	assert.FileExists(t, path)
}

func TestNormalizeDisabled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(path, pngBytes(t, 10, 10), 0644))

	assert.Equal(t, path, NewImageNormalizer(false).Run(path))
	assert.FileExists(t, path)
}

func TestIsCompliant(t *testing.T) {
	assert.True(t, isCompliant(1400, 1400, "jpeg"))
	assert.True(t, isCompliant(3000, 3000, "jpeg"))
	assert.False(t, isCompliant(1399, 1399, "jpeg"))
	assert.False(t, isCompliant(3001, 3001, "jpeg"))
	assert.False(t, isCompliant(1400, 1500, "jpeg"))
	assert.False(t, isCompliant(1400, 1400, "png"))
}

func TestExistingImage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), nil, 0644))

	name, ok := existingImage(dir, "cover.png")
	assert.True(t, ok)
	assert.Equal(t, "cover.jpg", name)

	_, ok = existingImage(dir, "other.png")
	assert.False(t, ok)
}
