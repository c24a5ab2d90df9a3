// Package local writes crawl results to the local filesystem.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	"github.com/JakeFAU/prospekt-crawler/internal/storage"
)

const (
	dirPerm  = 0o750
	filePerm = 0o644
)

// Sink writes the JSON encoding of a result to a file path, replacing any
// existing file atomically.
type Sink struct{}

var _ crawler.ResultSink = (*Sink)(nil)

// New creates a filesystem sink.
func New() *Sink {
	return &Sink{}
}

// Save writes result to destination. Parent directories are created; the data
// lands in a temp file beside the target and is renamed into place.
func (s *Sink) Save(_ context.Context, result crawler.CrawlResult, destination string) error {
	if strings.TrimSpace(destination) == "" {
		return fmt.Errorf("destination path is required")
	}
	data, err := storage.Encode(result)
	if err != nil {
		return err
	}

	dir := filepath.Dir(destination)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create parent directories: %w", err)
	}
	info, err := os.Stat(destination)
	if err == nil && info.IsDir() {
		return fmt.Errorf("destination %s is a directory", destination)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destination)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpName) //nolint:errcheck // best-effort removal of a partial file
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		cleanup()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	// #nosec G302 -- the output file is meant to be readable by other tools.
	if err := os.Chmod(tmpName, filePerm); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, destination); err != nil {
		cleanup()
		return fmt.Errorf("failed to move result into %s: %w", destination, err)
	}
	return nil
}
