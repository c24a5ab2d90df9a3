// Package app builds the long-lived services of one crawl from Config and runs
// it end to end: crawl, persist, notify, export metrics.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	gcsstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/prospekt-crawler/internal/clock/system"
	"github.com/JakeFAU/prospekt-crawler/internal/config"
	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/prospekt-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/prospekt-crawler/internal/hash/sha256"
	"github.com/JakeFAU/prospekt-crawler/internal/id/uuid"
	"github.com/JakeFAU/prospekt-crawler/internal/metrics"
	"github.com/JakeFAU/prospekt-crawler/internal/parser"
	"github.com/JakeFAU/prospekt-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/prospekt-crawler/internal/progress"
	"github.com/JakeFAU/prospekt-crawler/internal/progress/sinks"
	"github.com/JakeFAU/prospekt-crawler/internal/publisher"
	pubsubpublisher "github.com/JakeFAU/prospekt-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/prospekt-crawler/internal/storage"
	"github.com/JakeFAU/prospekt-crawler/internal/storage/gcs"
	"github.com/JakeFAU/prospekt-crawler/internal/storage/local"
	"github.com/JakeFAU/prospekt-crawler/internal/storage/postgres"
)

// Option overrides a dependency, mainly for tests.
type Option func(*App)

// WithSink replaces the sink chosen from crawl.output and database.dsn.
func WithSink(sink crawler.ResultSink) Option {
	return func(a *App) { a.sink = sink }
}

// WithPublisher replaces the Pub/Sub publisher.
func WithPublisher(pub crawler.Publisher) Option {
	return func(a *App) { a.publisher = pub }
}

// WithClock replaces the wall clock.
func WithClock(clock crawler.Clock) Option {
	return func(a *App) { a.clock = clock }
}

// App holds the services for one crawl run.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	clock        crawler.Clock
	hasher       crawler.Hasher
	registry     *prometheus.Registry
	hub          *progress.Hub
	orchestrator *crawler.Orchestrator
	sink         crawler.ResultSink
	publisher    crawler.Publisher
	closers      []func()
}

// New wires every component described by cfg. It fails fast when a
// configured backend cannot be reached.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		return nil, crawler.ErrNoLogger
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		clock:    system.New(),
		hasher:   sha256.New(),
		registry: metrics.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.init(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		return fmt.Errorf("init prometheus sink: %w", err)
	}
	a.hub = progress.NewHub(progress.Config{Logger: a.logger.Named("progress")},
		sinks.NewLogSink(a.logger.Named("progress")),
		promSink,
	)

	transport, err := collyfetcher.New(collyfetcher.Config{
		UserAgent:     a.cfg.Crawl.UserAgent,
		RespectRobots: a.cfg.Crawl.RespectRobots,
		Timeout:       a.cfg.FetcherTimeout(),
		Concurrency:   a.cfg.Crawl.Concurrency,
		Limiter: ratelimit.New(ratelimit.Config{
			RPS:   a.cfg.Crawl.RateLimitRPS,
			Burst: a.cfg.Crawl.RateLimitBurst,
		}),
	}, a.logger.Named("fetcher"))
	if err != nil {
		return fmt.Errorf("init transport: %w", err)
	}

	discoverer, err := parser.NewMainPageParser(a.cfg.Crawl.BaseURL, a.cfg.Selectors, a.logger.Named("discover"))
	if err != nil {
		return fmt.Errorf("init link discoverer: %w", err)
	}
	extractor, err := parser.NewFlyerExtractor(a.cfg.Selectors, a.clock, a.logger.Named("extract"))
	if err != nil {
		return fmt.Errorf("init record extractor: %w", err)
	}

	a.orchestrator, err = crawler.NewOrchestrator(
		transport,
		discoverer,
		extractor,
		uuid.New(),
		a.clock,
		a.hub,
		crawler.Config{
			CategoryURL:        a.cfg.CategoryURL(),
			ExtractConcurrency: a.cfg.Crawl.ExtractConcurrency,
		},
		a.logger.Named("crawler"),
	)
	if err != nil {
		return fmt.Errorf("init orchestrator: %w", err)
	}

	if a.sink == nil {
		if a.sink, err = a.buildSink(ctx); err != nil {
			return err
		}
	}
	if a.publisher == nil && a.cfg.PubSub.TopicName != "" {
		client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
		if err != nil {
			return fmt.Errorf("init pubsub client: %w", err)
		}
		pub := pubsubpublisher.New(client)
		a.publisher = pub
		a.closers = append(a.closers, func() {
			pub.Close()
			if err := client.Close(); err != nil {
				a.logger.Warn("error closing pubsub client", zap.Error(err))
			}
		})
		a.logger.Info("publishing crawl notifications", zap.String("topic", a.cfg.PubSub.TopicName))
	}
	return nil
}

func (a *App) buildSink(ctx context.Context) (crawler.ResultSink, error) {
	router := storage.Router{Local: local.New()}
	if a.cfg.RemoteOutput() {
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("error closing gcs client", zap.Error(err))
			}
		})
		if router.Remote, err = gcs.New(client); err != nil {
			return nil, fmt.Errorf("init gcs sink: %w", err)
		}
	}
	if a.cfg.Database.DSN == "" {
		return router, nil
	}

	db, err := postgres.New(ctx, postgres.Config{
		DSN:      a.cfg.Database.DSN,
		Table:    a.cfg.Database.Table,
		MaxConns: a.cfg.Database.MaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("init postgres sink: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	a.logger.Info("storing flyers in postgres", zap.String("table", a.cfg.Database.Table))
	return storage.Multi{router, db}, nil
}

// Run crawls, saves the records to crawl.output, publishes the completion
// notice and writes the metrics textfile. A failed save fails the run; a
// failed notification or metrics export is only logged.
func (a *App) Run(ctx context.Context) (crawler.Report, error) {
	report, runErr := a.orchestrator.Run(ctx)
	if runErr == nil {
		if err := a.sink.Save(ctx, report.Records, a.cfg.Crawl.Output); err != nil {
			runErr = fmt.Errorf("save results to %s: %w", a.cfg.Crawl.Output, err)
		} else {
			checksum := a.checksum(report.Records)
			a.logger.Info("results saved",
				zap.String("run_id", report.RunID),
				zap.String("output", a.cfg.Crawl.Output),
				zap.Int("records", len(report.Records)),
				zap.String("sha256", checksum),
			)
			a.notify(ctx, report, checksum)
		}
	}

	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("progress hub did not drain", zap.Error(err))
	}
	if a.cfg.Metrics.File != "" {
		if err := metrics.WriteTextfile(a.cfg.Metrics.File, a.registry); err != nil {
			a.logger.Warn("metrics export failed", zap.String("path", a.cfg.Metrics.File), zap.Error(err))
		}
	}
	return report, runErr
}

// checksum fingerprints the encoded output. An empty string means hashing failed.
func (a *App) checksum(result crawler.CrawlResult) string {
	data, err := storage.Encode(result)
	if err == nil {
		var sum string
		if sum, err = a.hasher.Hash(data); err == nil {
			return sum
		}
	}
	a.logger.Warn("output checksum failed", zap.Error(err))
	return ""
}

func (a *App) notify(ctx context.Context, report crawler.Report, checksum string) {
	msg := publisher.NewCrawlCompleted(report, a.cfg.Crawl.Category, a.cfg.Crawl.Output, a.clock.Now())
	msg.Checksum = checksum
	id, err := publisher.Notify(ctx, a.publisher, a.cfg.PubSub.TopicName, msg)
	switch {
	case err != nil:
		a.logger.Warn("crawl notification failed", zap.String("run_id", report.RunID), zap.Error(err))
	case id != "":
		a.logger.Info("crawl notification published", zap.String("run_id", report.RunID), zap.String("message_id", id))
	}
}

// Registry exposes the metrics registry.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Close releases clients in reverse construction order.
func (a *App) Close(ctx context.Context) {
	if a.hub != nil {
		if err := a.hub.Close(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("error closing progress hub", zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
