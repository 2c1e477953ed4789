package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

// GCSSource persists the CSV as a single GCS object. GCS object writes are
// atomic, so Replace needs no extra machinery. Assumes Application Default
// Credentials are configured.
type GCSSource struct {
	Bucket string
	Object string
}

// NewGCSSource creates a source from a "gs://bucket/path/to/file.csv" URI.
func NewGCSSource(uri string) (*GCSSource, error) {
	if !strings.HasPrefix(uri, "gs://") {
		return nil, fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("GCS URI %q must name a bucket and an object", uri)
	}
	return &GCSSource{Bucket: parts[0], Object: parts[1]}, nil
}

// Fetch implements Source.
func (g *GCSSource) Fetch(ctx context.Context) ([]byte, error) {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(g.Bucket).Object(g.Object).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

// Replace implements Source.
func (g *GCSSource) Replace(ctx context.Context, data []byte) error {
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(g.Bucket).Object(g.Object).NewWriter(ctx)
	w.ContentType = "text/csv"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize GCS upload: %w", err)
	}
	return nil
}

var _ Source = (*GCSSource)(nil)
