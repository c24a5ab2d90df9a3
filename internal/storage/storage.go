// Package storage persists crawl results. The JSON encoding here is shared by
// every file-like sink; subpackages handle the filesystem, GCS and Postgres.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
)

// GCSScheme prefixes destinations that live in Cloud Storage.
const GCSScheme = "gs://"

// ContentType is the media type of encoded results.
const ContentType = "application/json; charset=utf-8"

// Encode renders result as an indented JSON array. A nil or empty result
// encodes as "[]".
func Encode(result crawler.CrawlResult) ([]byte, error) {
	if result == nil {
		result = crawler.CrawlResult{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return nil, fmt.Errorf("encode crawl result: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses data produced by Encode.
func Decode(data []byte) (crawler.CrawlResult, error) {
	var result crawler.CrawlResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode crawl result: %w", err)
	}
	return result, nil
}

// Router sends gs:// destinations to Remote and everything else to Local.
type Router struct {
	Local  crawler.ResultSink
	Remote crawler.ResultSink
}

var _ crawler.ResultSink = Router{}

// Save implements crawler.ResultSink.
func (r Router) Save(ctx context.Context, result crawler.CrawlResult, destination string) error {
	if strings.HasPrefix(destination, GCSScheme) {
		if r.Remote == nil {
			return fmt.Errorf("no cloud storage sink configured for %s", destination)
		}
		return r.Remote.Save(ctx, result, destination)
	}
	if r.Local == nil {
		return fmt.Errorf("no local sink configured for %s", destination)
	}
	return r.Local.Save(ctx, result, destination)
}

// Multi saves to every sink in order. All sinks are attempted and their
// failures joined.
type Multi []crawler.ResultSink

var _ crawler.ResultSink = Multi{}

// Save implements crawler.ResultSink.
func (m Multi) Save(ctx context.Context, result crawler.CrawlResult, destination string) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Save(ctx, result, destination); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
