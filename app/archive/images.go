package archive

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	CoverSize     = 1400
	maxCoverSize  = 3000
	jpegQuality   = 90
	normalizedExt = ".jpg"
)

// ImageNormalizer rewrites artwork into the square JPEG podcast apps expect.
type ImageNormalizer struct {
	enabled bool
}

func NewImageNormalizer(enabled bool) *ImageNormalizer {
	return &ImageNormalizer{enabled: enabled}
}

// Run returns the path of the normalized image. Images that are already
// square JPEGs between 1400 and 3000 pixels are left alone; anything that
// cannot be decoded is logged and kept as is.
func (n *ImageNormalizer) Run(path string) string {
	if !n.enabled {
		return path
	}

	newPath, err := normalizeImage(path)
	if err != nil {
		slog.Warn("Image normalization failed, keeping original", "path", path, "error", err)
		return path
	}
	if newPath != path {
		slog.Debug("Image normalized", "from", filepath.Base(path), "to", filepath.Base(newPath))
	}
	return newPath
}

func normalizeImage(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}

	config, format, err := image.DecodeConfig(f)
	if err != nil {
		f.Close()
		return "", fmt.Errorf("failed to read image header: %w", err)
	}

	if isCompliant(config.Width, config.Height, format) {
		f.Close()
		return path, nil
	}

	if _, err := f.Seek(0, 0); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to rewind image: %w", err)
	}

	src, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, CoverSize, CoverSize))
	// flatten transparency onto white
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	newPath := strings.TrimSuffix(path, filepath.Ext(path)) + normalizedExt
	tmpPath := newPath + ".tmp"

	out, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", tmpPath, err)
	}
	err = jpeg.Encode(out, dst, &jpeg.Options{Quality: jpegQuality})
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to encode jpeg: %w", err)
	}

	if err := os.Rename(tmpPath, newPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move jpeg into place: %w", err)
	}

	if newPath != path {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("Failed to remove original image", "path", path, "error", err)
		}
	}

	return newPath, nil
}

func isCompliant(width, height int, format string) bool {
	return width == height &&
		width >= CoverSize && width <= maxCoverSize &&
		format == "jpeg"
}
