// Package collyfetcher implements crawler.Transport using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	"github.com/JakeFAU/prospekt-crawler/internal/fanout"
	"github.com/JakeFAU/prospekt-crawler/internal/policy/ratelimit"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "Mozilla/5.0 (compatible; prospekt-crawler/1.0)"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	// Timeout bounds each GET from dial to last body byte.
	Timeout time.Duration
	// Concurrency caps in-flight requests in FetchMany. Zero means one goroutine per URL.
	Concurrency int
	// Limiter throttles requests per host. Nil disables throttling.
	Limiter *ratelimit.Limiter
}

// Fetcher implements crawler.Transport using the Colly collector. Each request
// runs on its own clone of a base collector so callbacks never cross requests.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

var _ crawler.Transport = (*Fetcher)(nil)

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Transport and timeout are installed once on the base
// collector because clones share its HTTP backend.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		return nil, crawler.ErrNoLogger
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}

	c := colly.NewCollector(colly.Async(false))
	c.AllowURLRevisit = true
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	c.UserAgent = cfg.UserAgent
	c.WithTransport(newHTTPTransport(cfg.Concurrency))
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}, nil
}

// Fetch executes a single HTTP GET and returns the body, or a *crawler.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	res := f.fetch(ctx, url)
	if res.Err != nil {
		return "", res.Err
	}
	return res.Body, nil
}

// FetchMany fetches every distinct URL concurrently and waits for all of them.
// Failures are recorded per URL and never abort sibling requests.
func (f *Fetcher) FetchMany(ctx context.Context, urls []string) map[string]crawler.PageFetchResult {
	unique := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}

	results := fanout.Map(ctx, unique, f.cfg.Concurrency, f.fetch)
	out := make(map[string]crawler.PageFetchResult, len(results))
	for _, res := range results {
		out[res.URL] = res
	}
	return out
}

// observed holds what the collector callbacks saw for one request.
type observed struct {
	body   []byte
	status int
	err    error
}

func (f *Fetcher) fetch(ctx context.Context, url string) crawler.PageFetchResult {
	start := time.Now()
	result := crawler.PageFetchResult{URL: url}

	if waited, err := f.cfg.Limiter.Wait(ctx, url); err != nil {
		result.Err = crawler.ClassifyFetchError(url, 0, err)
		result.Duration = time.Since(start)
		return result
	} else if waited > 0 {
		f.logger.Debug("rate limited", zap.String("url", url), zap.Duration("waited", waited))
	}

	collector := f.baseCollector.Clone()
	obs := &observed{}
	f.configureCollectorHooks(collector, obs)

	err := f.runCollector(ctx, collector, url, obs)
	result.Duration = time.Since(start)
	if err != nil {
		status := 0
		var visitErr *visitError
		if errors.As(err, &visitErr) {
			status = visitErr.status
		}
		result.StatusCode = status
		result.Err = crawler.ClassifyFetchError(url, status, err)
		f.logger.Debug("fetch failed",
			zap.String("url", url),
			zap.Int("status", status),
			zap.Duration("duration", result.Duration),
			zap.Error(err),
		)
		return result
	}

	result.StatusCode = obs.status
	result.Body = string(obs.body)
	f.logger.Debug("fetched",
		zap.String("url", url),
		zap.Int("status", obs.status),
		zap.Int("bytes", len(obs.body)),
		zap.Duration("duration", result.Duration),
	)
	return result
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, obs *observed) {
	hooks.OnResponse(func(r *colly.Response) {
		obs.status = r.StatusCode
		obs.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil {
			obs.status = r.StatusCode
		}
		obs.err = err
	})
}

// visitError carries the status observed by OnError alongside the cause.
type visitError struct {
	status int
	err    error
}

func (e *visitError) Error() string { return e.err.Error() }

func (e *visitError) Unwrap() error { return e.err }

// runCollector visits url on its own goroutine so ctx cancellation returns
// promptly. obs is only read once Visit has finished.
func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, obs *observed) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err == nil {
			err = obs.err
		}
		if err != nil {
			return &visitError{status: obs.status, err: fmt.Errorf("colly visit failed: %w", err)}
		}
		return nil
	}
}

func newHTTPTransport(concurrency int) *http.Transport {
	perHost := 32
	if concurrency > perHost {
		perHost = concurrency
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   perHost,
		IdleConnTimeout:       90 * time.Second,
	}
}
