package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/prospekt-crawler/internal/clock/system"
	"github.com/JakeFAU/prospekt-crawler/internal/config"
	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	"github.com/JakeFAU/prospekt-crawler/internal/publisher/memory"
	memsink "github.com/JakeFAU/prospekt-crawler/internal/storage/memory"
)

var testNow = time.Date(2024, 6, 3, 8, 0, 0, 0, time.UTC)

const sidebarHTML = `<html><body><div id="sidebar"><ul>
<li><a href="/kaufland/">Kaufland</a></li>
<li><a href="/lidl/">Lidl</a></li>
<li><a href="/real/">Real</a></li>
</ul></div></body></html>`

func flyerPage(titles ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="letaky-grid">`)
	for _, title := range titles {
		fmt.Fprintf(&b, `<div class="brochure-thumb">
<picture><img data-src="https://img.example/%[1]s.jpg"></picture>
<div class="letak-description">
<p class="grid-item-content">%[1]s</p>
<p class="grid-item-content"><small class="visible-sm">01.06. - 15.06.2024</small></p>
</div></div>`, title)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

// newSite serves a category page with three shops; Lidl answers slower than
// the fetch timeout.
func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/hypermarkte/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, sidebarHTML)
	})
	mux.HandleFunc("/kaufland/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, flyerPage("k1", "k2"))
	})
	mux.HandleFunc("/lidl/", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(3 * time.Second):
		case <-r.Context().Done():
			return
		}
		_, _ = fmt.Fprint(w, flyerPage("l1"))
	})
	mux.HandleFunc("/real/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, flyerPage("r1"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	v := viper.New()
	v.Set("crawl.base_url", baseURL)
	v.Set("crawl.fetcher_timeout", 1)
	v.Set("crawl.output", filepath.Join(t.TempDir(), "output.json"))
	cfg, err := config.Load(v, "")
	require.NoError(t, err)
	return cfg
}

func TestRunCrawlsSavesAndNotifies(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	cfg.PubSub.TopicName = "flyers-done"
	cfg.Metrics.File = filepath.Join(t.TempDir(), "flyers.prom")

	pub := memory.New()
	a, err := New(context.Background(), cfg, zap.NewNop(),
		WithPublisher(pub),
		WithClock(system.Fixed{At: testNow}),
	)
	require.NoError(t, err)
	defer a.Close(context.Background())

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, crawler.StateDone, report.State)
	assert.Equal(t, 3, report.Shops)
	assert.Equal(t, 1, report.FetchFailures)

	data, err := os.ReadFile(cfg.Crawl.Output)
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, 3)
	assert.Equal(t, "k1", out[0]["title"])
	assert.Equal(t, "k2", out[1]["title"])
	assert.Equal(t, "r1", out[2]["title"])
	assert.Equal(t, "Real", out[2]["shop_name"])
	assert.Equal(t, "https://img.example/r1.jpg", out[2]["thumbnail"])
	assert.Equal(t, "2024-06-01T00:00:00", out[0]["valid_from"])
	assert.Equal(t, "2024-06-03T08:00:00Z", out[0]["parsed_time"])

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "flyers-done", msgs[0].Topic)
	assert.Equal(t, report.RunID, msgs[0].Attributes["run_id"])
	var notice struct {
		Records int    `json:"records"`
		SHA256  string `json:"sha256"`
	}
	require.NoError(t, json.Unmarshal(msgs[0].Data, &notice))
	assert.Equal(t, 3, notice.Records)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), notice.SHA256, "checksum covers the written file")

	prom, err := os.ReadFile(cfg.Metrics.File)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "flyers_records_extracted_total")
	assert.Contains(t, string(prom), "flyers_crawl_runs_completed_total")
}

func TestRunCategoryFailureSkipsSave(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	sink := memsink.New()
	pub := memory.New()
	cfg := testConfig(t, srv.URL)
	cfg.PubSub.TopicName = "flyers-done"
	a, err := New(context.Background(), cfg, zap.NewNop(), WithSink(sink), WithPublisher(pub))
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.Run(context.Background())
	require.Error(t, err)
	var fetchErr *crawler.FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusServiceUnavailable, fetchErr.StatusCode)

	_, saved := sink.Bytes(cfg.Crawl.Output)
	assert.False(t, saved)
	assert.Empty(t, pub.Messages())
}

func TestRunWithoutShopsWritesEmptyArray(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "<html><body><p>Wartungsarbeiten</p></body></html>")
	}))
	t.Cleanup(srv.Close)

	sink := memsink.New()
	cfg := testConfig(t, srv.URL)
	a, err := New(context.Background(), cfg, zap.NewNop(), WithSink(sink))
	require.NoError(t, err)
	defer a.Close(context.Background())

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, report.Warnings)

	data, ok := sink.Bytes(cfg.Crawl.Output)
	require.True(t, ok)
	assert.JSONEq(t, "[]", string(data))
}

func TestRunSaveFailureIsReturned(t *testing.T) {
	t.Parallel()

	srv := newSite(t)
	cfg := testConfig(t, srv.URL)
	cfg.Crawl.Output = t.TempDir()
	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close(context.Background())

	_, err = a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save results")
}

func TestRunResolvesRelativeShopLinksAgainstSiteRoot(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		paths []string
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/hypermarkte/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body><div id="sidebar"><ul>
<li><a href="lidl/">Lidl</a></li>
</ul></div></body></html>`)
	})
	mux.HandleFunc("/lidl/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, flyerPage("l1"))
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	sink := memsink.New()
	cfg := testConfig(t, srv.URL)
	a, err := New(context.Background(), cfg, zap.NewNop(), WithSink(sink))
	require.NoError(t, err)
	defer a.Close(context.Background())

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.FetchFailures)
	require.Len(t, report.Records, 1)
	assert.Equal(t, "l1", report.Records[0].Title)
	assert.Equal(t, "Lidl", report.Records[0].ShopName)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"/hypermarkte/", "/lidl/"}, paths)
}

func TestNewRequiresLogger(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.Config{}, nil)
	require.ErrorIs(t, err, crawler.ErrNoLogger)
}
