// Package publish mirrors regenerated podcast folders to S3-compatible storage.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/lysyi3m/pod-archive/app/cfg"
	"github.com/lysyi3m/pod-archive/app/feed"
)

const (
	feedFileName    = "archive.xml"
	feedContentType = "application/rss+xml"
)

// objectStore is the part of *minio.Client the mirror needs.
type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Mirror uploads the servable files of a podcast folder under the same
// key layout the URLs use, so the bucket can sit behind the public base URL.
type S3Mirror struct {
	client        objectStore
	bucket        string
	region        string
	bucketChecked bool
}

func NewS3Mirror(c cfg.S3Cfg) (*S3Mirror, error) {
	client, err := minio.New(c.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKey, c.SecretKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	return &S3Mirror{client: client, bucket: c.Bucket, region: c.Region}, nil
}

// Mirror uploads media first and archive.xml last. Media objects whose
// remote size already matches are skipped; the feed is always replaced.
func (s *S3Mirror) Mirror(ctx context.Context, podcastDir, keyPrefix string) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}

	files, err := mirrorFiles(podcastDir)
	if err != nil {
		return err
	}

	uploaded, skipped := 0, 0
	for _, name := range files {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		localPath := filepath.Join(podcastDir, name)
		key := path.Join(keyPrefix, name)

		if name != feedFileName {
			info, err := os.Stat(localPath)
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", name, err)
			}
			if s.sameSize(ctx, key, info.Size()) {
				skipped++
				continue
			}
		}

		_, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType(name)})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		uploaded++
	}

	slog.Info("Folder mirrored", "bucket", s.bucket, "prefix", keyPrefix, "uploaded", uploaded, "skipped", skipped)
	return nil
}

func (s *S3Mirror) ensureBucket(ctx context.Context) error {
	if s.bucketChecked {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("can't check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return fmt.Errorf("can't create bucket %s: %w", s.bucket, err)
		}
		slog.Info("Bucket created", "bucket", s.bucket)
	}

	s.bucketChecked = true
	return nil
}

func (s *S3Mirror) sameSize(ctx context.Context, key string, size int64) bool {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return false
	}
	return info.Size == size
}

// mirrorFiles lists what a listener can fetch: everything except sidecars,
// hidden files and partial downloads, with archive.xml moved to the end.
func mirrorFiles(podcastDir string) ([]string, error) {
	entries, err := os.ReadDir(podcastDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read podcast directory: %w", err)
	}

	var files []string
	hasFeed := false
	for _, e := range entries {
		name := e.Name()
		switch {
		case e.IsDir(), strings.HasPrefix(name, "."):
		case strings.HasSuffix(name, ".json"), strings.HasSuffix(name, ".part"):
		case name == feedFileName:
			hasFeed = true
		default:
			files = append(files, name)
		}
	}
	slices.Sort(files)

	if hasFeed {
		files = append(files, feedFileName)
	}
	return files, nil
}

func contentType(name string) string {
	if name == feedFileName {
		return feedContentType
	}

	ext := strings.ToLower(filepath.Ext(name))
	if t := mime.TypeByExtension(ext); strings.HasPrefix(t, "image/") {
		return t
	}
	return feed.EnclosureMIME(name)
}
