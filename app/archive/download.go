package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const partialSuffix = ".part"

// Downloader streams remote files to disk.
type Downloader struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewDownloader(httpClient *http.Client, userAgent string, timeout time.Duration) *Downloader {
	return &Downloader{
		httpClient: httpClient,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Download writes url to dest via dest+".part", renaming only after the body
// was fully copied. A leftover .part from an interrupted run is truncated.
func (d *Downloader) Download(ctx context.Context, url, dest string) (int64, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	partial := dest + partialSuffix
	out, err := os.Create(partial)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", partial, err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partial)
		return 0, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if err := os.Rename(partial, dest); err != nil {
		os.Remove(partial)
		return 0, fmt.Errorf("failed to move download into place: %w", err)
	}

	return written, nil
}
