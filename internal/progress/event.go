// Package progress defines the event structures emitted while a crawl runs.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageCrawlStart      Stage = "CRAWL_START"
	StageLinksDiscovered Stage = "LINKS_DISCOVERED"
	StageFetchDone       Stage = "FETCH_DONE"
	StageExtractDone     Stage = "EXTRACT_DONE"
	StageCrawlDone       Stage = "CRAWL_DONE"
	StageCrawlError      Stage = "CRAWL_ERROR"
)

// StatusClass is a coarse HTTP response grouping.
type StatusClass string

// Supported HTTP status classes tracked for fetch completions.
const (
	Status2xx   StatusClass = "2xx"
	Status3xx   StatusClass = "3xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures a single milestone of one crawl run.
type Event struct {
	// RunID identifies the crawl run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Shop scopes fetch and extract events to one shop.
	Shop string
	// URL is the page the event refers to.
	URL string
	// Bytes carries the response size for fetch events.
	Bytes int64
	// Count is the number of links (LINKS_DISCOVERED) or records (EXTRACT_DONE, CRAWL_DONE).
	Count int
	// StatusClass groups HTTP response codes for fetch events.
	StatusClass StatusClass
	// Dur captures fetch latency or total run time.
	Dur time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageCrawlStart, StageLinksDiscovered, StageCrawlDone, StageCrawlError:
	case StageFetchDone:
		if e.URL == "" {
			return errors.New("fetch done requires url")
		}
		if e.StatusClass == "" {
			return errors.New("fetch done requires status class")
		}
	case StageExtractDone:
		if e.Shop == "" {
			return errors.New("extract done requires shop")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	if e.Count < 0 {
		return errors.New("count must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// ParseRunID converts a textual run ID into the Event form. Unparsable IDs map
// to the zero value, which Validate rejects.
func ParseRunID(raw string) [16]byte {
	id, err := uuid.Parse(raw)
	if err != nil {
		return [16]byte{}
	}
	return UUIDToBytes(id)
}

// ClassifyStatus groups HTTP status codes for fetch events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 300 && code < 400:
		return Status3xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
