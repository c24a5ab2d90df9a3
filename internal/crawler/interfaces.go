package crawler

import (
	"context"
	"time"
)

// Transport issues HTTP GETs. Implementations must be safe for concurrent use.
type Transport interface {
	// Fetch returns the body of url or a *FetchError.
	Fetch(ctx context.Context, url string) (string, error)
	// FetchMany fetches every URL concurrently and returns once all have finished.
	// A failing URL never cancels the others; its result carries Err.
	FetchMany(ctx context.Context, urls []string) map[string]PageFetchResult
}

// LinkDiscoverer turns a category page into shop detail-page links.
// Missing structure yields an empty map, never an error.
type LinkDiscoverer interface {
	DiscoverLinks(body string) *LinkMap
}

// RecordExtractor turns a detail page into flyer records for one shop.
// Malformed elements degrade to empty-field records; it never fails.
type RecordExtractor interface {
	ExtractRecords(body string, shopName string) []FlyerRecord
}

// ResultSink persists a crawl result.
type ResultSink interface {
	Save(ctx context.Context, result CrawlResult, destination string) error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// Hasher digests encoded crawl output so consumers can detect unchanged runs.
type Hasher interface {
	Hash(data []byte) (string, error)
}
