// Package cmd defines the flyercrawler command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/JakeFAU/prospekt-crawler/internal/app"
	"github.com/JakeFAU/prospekt-crawler/internal/config"
	"github.com/JakeFAU/prospekt-crawler/internal/crawler"
	"github.com/JakeFAU/prospekt-crawler/internal/logging"
)

// Runner is what the command needs from the application container.
type Runner interface {
	Run(ctx context.Context) (crawler.Report, error)
	Close(ctx context.Context)
}

// newApp is the application factory. It's a variable so tests can swap it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Runner, error) {
	return app.New(ctx, cfg, logger)
}

// flagKeys maps each flag to the config key it overrides.
var flagKeys = map[string]string{
	"category":        "crawl.category",
	"output":          "crawl.output",
	"base_url":        "crawl.base_url",
	"fetcher_timeout": "crawl.fetcher_timeout",
	"concurrency":     "crawl.concurrency",
	"verbose":         "logging.verbose",
	"log_file":        "logging.file",
	"metrics_file":    "metrics.file",
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "flyercrawler",
		Short: "Scrape retail flyers from prospektmaschine.de",
		Long: `flyercrawler reads the shop list of one prospektmaschine.de category,
fetches every shop's flyer page concurrently and writes the flyers it finds
(title, thumbnail, validity window) to a JSON file or a gs:// object.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd.Context(), v, cfgFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file")
	flags.String("category", "hypermarkte", "category to scrape")
	flags.String("output", "output.json", "output JSON path or gs://bucket/object")
	flags.String("base_url", "https://www.prospektmaschine.de/", "site root")
	flags.Int("fetcher_timeout", 10, "per-request timeout in seconds")
	flags.Int("concurrency", 0, "max concurrent detail fetches (0 = unbounded)")
	flags.Bool("verbose", false, "enable debug logging")
	flags.String("log_file", "", "also write logs to this file")
	flags.String("metrics_file", "", "write Prometheus metrics to this textfile after the run")
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
	return cmd
}

func runCrawl(ctx context.Context, v *viper.Viper, cfgFile string) error {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(logging.Options{
		Development: cfg.Logging.Development,
		Verbose:     cfg.Logging.Verbose,
		File:        cfg.Logging.File,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() //nolint:errcheck // stderr sync fails on some terminals
	}()

	logger.Info("starting crawl",
		zap.String("category", cfg.Crawl.Category),
		zap.String("category_url", cfg.CategoryURL()),
		zap.String("output", cfg.Crawl.Output),
	)

	runner, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application services", zap.Error(err))
		return fmt.Errorf("init app: %w", err)
	}
	defer runner.Close(context.WithoutCancel(ctx))

	report, err := runner.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl %s: %w", cfg.CategoryURL(), err)
	}
	logger.Info("scraping completed",
		zap.String("run_id", report.RunID),
		zap.Int("records", len(report.Records)),
		zap.Int("fetch_failures", report.FetchFailures),
		zap.Strings("warnings", report.Warnings),
		zap.Duration("duration", report.Duration),
		zap.String("output", cfg.Crawl.Output),
	)
	return nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}
