// Package crawler defines core types shared across subsystems.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// FlyerRecord is one flyer extracted from a shop's detail page.
type FlyerRecord struct {
	Title     string    `json:"title"`
	Thumbnail string    `json:"thumbnail"`
	ShopName  string    `json:"shop_name"`
	ValidFrom string    `json:"valid_from"`
	ValidTo   string    `json:"valid_to"`
	ParsedAt  time.Time `json:"parsed_time"`
}

// NewFlyerRecord stamps a record with its creation time.
func NewFlyerRecord(title, thumbnail, shopName, validFrom, validTo string, parsedAt time.Time) FlyerRecord {
	return FlyerRecord{
		Title:     title,
		Thumbnail: thumbnail,
		ShopName:  shopName,
		ValidFrom: validFrom,
		ValidTo:   validTo,
		ParsedAt:  parsedAt,
	}
}

// IsEmpty reports whether the record carries nothing beyond its shop and timestamp.
func (r FlyerRecord) IsEmpty() bool {
	return r.Title == "" && r.Thumbnail == "" && r.ValidFrom == "" && r.ValidTo == ""
}

// CrawlResult is the ordered record collection produced by one crawl.
type CrawlResult []FlyerRecord

// LinkMap is an insertion-ordered mapping from shop name to detail-page URL.
// The zero value is an empty map ready for use.
type LinkMap struct {
	names []string
	urls  map[string]string
}

// NewLinkMap returns an empty LinkMap.
func NewLinkMap() *LinkMap {
	return &LinkMap{urls: make(map[string]string)}
}

// Add records name → url. It returns false and leaves the map unchanged when the
// name is already present, so the first occurrence wins.
func (m *LinkMap) Add(name, url string) bool {
	if m.urls == nil {
		m.urls = make(map[string]string)
	}
	if _, ok := m.urls[name]; ok {
		return false
	}
	m.names = append(m.names, name)
	m.urls[name] = url
	return true
}

// Get returns the URL for name.
func (m *LinkMap) Get(name string) (string, bool) {
	if m == nil {
		return "", false
	}
	u, ok := m.urls[name]
	return u, ok
}

// Len returns the number of shops.
func (m *LinkMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.names)
}

// Names returns shop names in discovery order.
func (m *LinkMap) Names() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.names...)
}

// URLs returns detail-page URLs in discovery order.
func (m *LinkMap) URLs() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.names))
	for _, name := range m.names {
		out = append(out, m.urls[name])
	}
	return out
}

// PageFetchResult is the outcome of fetching one URL.
type PageFetchResult struct {
	URL        string
	Body       string
	StatusCode int
	Duration   time.Duration
	Err        error
}

// OK reports whether the fetch produced a body.
func (r PageFetchResult) OK() bool {
	return r.Err == nil
}

// FailureKind classifies transport failures.
type FailureKind string

// Transport failure kinds.
const (
	FailureTimeout    FailureKind = "timeout"
	FailureHTTPStatus FailureKind = "http_status"
	FailureNetwork    FailureKind = "network"
)

// FetchError is returned by transports for any failed GET.
type FetchError struct {
	Kind       FailureKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FailureHTTPStatus {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ClassifyFetchError converts a raw transport error into a FetchError.
// A non-zero status code always classifies as an HTTP status failure.
func ClassifyFetchError(url string, statusCode int, err error) *FetchError {
	if err == nil {
		err = errors.New("unknown transport error")
	}
	var existing *FetchError
	if errors.As(err, &existing) {
		return existing
	}
	kind := FailureNetwork
	switch {
	case statusCode != 0:
		kind = FailureHTTPStatus
	case isTimeout(err):
		kind = FailureTimeout
	}
	return &FetchError{Kind: kind, URL: url, StatusCode: statusCode, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// State is a crawl orchestrator lifecycle state.
type State string

// Orchestrator states.
const (
	StateIdle            State = "idle"
	StateDiscovering     State = "discovering"
	StateFetchingDetails State = "fetching_details"
	StateExtracting      State = "extracting"
	StateDone            State = "done"
)

// Report summarizes one crawl run.
type Report struct {
	RunID         string
	CategoryURL   string
	State         State
	Records       CrawlResult
	Shops         int
	FetchFailures int
	Warnings      []string
	Duration      time.Duration
}
