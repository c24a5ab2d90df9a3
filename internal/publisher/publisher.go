// Package publisher defines the crawl-complete notification and the contract
// shared by the Pub/Sub and in-memory publishers.
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
)

// Attributer is implemented by payloads that carry message attributes.
type Attributer interface {
	Attributes() map[string]string
}

// CrawlCompleted announces a finished crawl and where its output went.
type CrawlCompleted struct {
	RunID      string    `json:"run_id"`
	Category   string    `json:"category"`
	Records    int       `json:"records"`
	Output     string    `json:"output"`
	Checksum   string    `json:"sha256,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Attributes lets subscribers filter without decoding the body.
func (c CrawlCompleted) Attributes() map[string]string {
	return map[string]string{
		"event":    "crawl_completed",
		"run_id":   c.RunID,
		"category": c.Category,
	}
}

// NewCrawlCompleted builds the notification for report.
func NewCrawlCompleted(report crawler.Report, category, output string, finishedAt time.Time) CrawlCompleted {
	return CrawlCompleted{
		RunID:      report.RunID,
		Category:   category,
		Records:    len(report.Records),
		Output:     output,
		FinishedAt: finishedAt.UTC(),
	}
}

// Notify publishes msg to topic. An empty topic or nil publisher is a no-op.
func Notify(ctx context.Context, pub crawler.Publisher, topic string, msg CrawlCompleted) (string, error) {
	if pub == nil || topic == "" {
		return "", nil
	}
	id, err := pub.Publish(ctx, topic, msg)
	if err != nil {
		return "", fmt.Errorf("publish crawl completion to %s: %w", topic, err)
	}
	return id, nil
}
