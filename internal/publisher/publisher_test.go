package publisher_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	"github.com/JakeFAU/prospekt-crawler/internal/publisher"
	"github.com/JakeFAU/prospekt-crawler/internal/publisher/memory"
)

func TestNotifyPublishesCompletion(t *testing.T) {
	t.Parallel()

	finished := time.Date(2024, 6, 3, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	report := crawler.Report{
		RunID:   "run-1",
		Records: crawler.CrawlResult{{Title: "a"}, {Title: "b"}},
	}
	msg := publisher.NewCrawlCompleted(report, "hypermarkte", "output.json", finished)

	pub := memory.New()
	id, err := publisher.Notify(context.Background(), pub, "flyers-done", msg)
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "flyers-done", msgs[0].Topic)
	assert.Equal(t, "run-1", msgs[0].Attributes["run_id"])
	assert.Equal(t, "crawl_completed", msgs[0].Attributes["event"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msgs[0].Data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, "hypermarkte", decoded["category"])
	assert.InDelta(t, 2, decoded["records"], 0)
	assert.Equal(t, "output.json", decoded["output"])
	assert.Equal(t, "2024-06-03T08:00:00Z", decoded["finished_at"])
}

func TestNotifySkipsWithoutTopic(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	id, err := publisher.Notify(context.Background(), pub, "", publisher.CrawlCompleted{})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, pub.Messages())

	_, err = publisher.Notify(context.Background(), nil, "topic", publisher.CrawlCompleted{})
	require.NoError(t, err)
}

func TestNotifyWrapsErrors(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	pub.FailWith(assert.AnError)
	_, err := publisher.Notify(context.Background(), pub, "topic", publisher.CrawlCompleted{})
	require.ErrorIs(t, err, assert.AnError)
}
