// Package memory keeps crawl results in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	"github.com/JakeFAU/prospekt-crawler/internal/storage"
)

// Sink stores the encoded result per destination.
type Sink struct {
	mu   sync.RWMutex
	data map[string][]byte
}

var _ crawler.ResultSink = (*Sink)(nil)

// New creates an empty in-memory sink.
func New() *Sink {
	return &Sink{data: make(map[string][]byte)}
}

// Save encodes result and keeps it under destination.
func (s *Sink) Save(_ context.Context, result crawler.CrawlResult, destination string) error {
	data, err := storage.Encode(result)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[destination] = data
	return nil
}

// Bytes returns the stored encoding for destination.
func (s *Sink) Bytes(destination string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[destination]
	return append([]byte(nil), data...), ok
}

// Result decodes what was stored under destination.
func (s *Sink) Result(destination string) (crawler.CrawlResult, error) {
	data, ok := s.Bytes(destination)
	if !ok {
		return nil, fmt.Errorf("nothing saved to %s", destination)
	}
	return storage.Decode(data)
}
