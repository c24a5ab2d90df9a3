// Package gcs uploads crawl results to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	rootstorage "github.com/JakeFAU/prospekt-crawler/internal/storage"
)

// WriterFunc opens a writer for bucket/object. Closing it finalizes the upload.
type WriterFunc func(ctx context.Context, bucket, object string) io.WriteCloser

// Sink writes results to gs://bucket/object destinations.
type Sink struct {
	newWriter WriterFunc
}

var _ crawler.ResultSink = (*Sink)(nil)

// New creates a Sink backed by client.
func New(client *storage.Client) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	return NewWithWriter(func(ctx context.Context, bucket, object string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = rootstorage.ContentType
		return w
	})
}

// NewWithWriter creates a Sink that uploads through fn.
func NewWithWriter(fn WriterFunc) (*Sink, error) {
	if fn == nil {
		return nil, fmt.Errorf("writer func is required")
	}
	return &Sink{newWriter: fn}, nil
}

// ParseURI splits gs://bucket/object into its parts.
func ParseURI(uri string) (bucket, object string, err error) {
	rest, ok := strings.CutPrefix(uri, rootstorage.GCSScheme)
	if !ok {
		return "", "", fmt.Errorf("not a gs:// uri: %q", uri)
	}
	bucket, object, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(object, "/") == "" {
		return "", "", fmt.Errorf("gs uri needs bucket and object: %q", uri)
	}
	return bucket, object, nil
}

// Save uploads the JSON encoding of result to destination.
func (s *Sink) Save(ctx context.Context, result crawler.CrawlResult, destination string) error {
	bucket, object, err := ParseURI(destination)
	if err != nil {
		return err
	}
	data, err := rootstorage.Encode(result)
	if err != nil {
		return err
	}
	w := s.newWriter(ctx, bucket, object)
	if _, err := w.Write(data); err != nil {
		if closeErr := w.Close(); closeErr != nil {
			return fmt.Errorf("write object %s: %w (close writer: %v)", destination, err, closeErr)
		}
		return fmt.Errorf("write object %s: %w", destination, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close writer for %s: %w", destination, err)
	}
	return nil
}
