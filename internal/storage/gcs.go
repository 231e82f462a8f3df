package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const publicHost = "https://storage.googleapis.com"

// GCSStorage publishes local audio files to a bucket so renderers can fetch them.
type GCSStorage struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSStorage(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) objectName(localPath string) string {
	return path.Join(s.prefix, filepath.Base(localPath))
}

// PublicURL is the address the object is served from once uploaded.
func (s *GCSStorage) PublicURL(object string) string {
	return fmt.Sprintf("%s/%s/%s", publicHost, s.bucket, object)
}

func (s *GCSStorage) UploadAudio(ctx context.Context, localPath string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open audio: %w", err)
	}
	defer func() { _ = f.Close() }()

	object := s.objectName(localPath)
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "audio/mpeg"

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload audio: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	url := s.PublicURL(object)
	slog.Debug("Audio uploaded", "bucket", s.bucket, "object", object)
	return url, nil
}
