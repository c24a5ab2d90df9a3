// Package config loads and validates crawler configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/prospekt-crawler/internal/parser"
)

// EnvPrefix namespaces environment overrides, e.g. FLYERS_CRAWL_CATEGORY.
const EnvPrefix = "FLYERS"

// Config captures every knob of a crawl run.
type Config struct {
	Crawl     CrawlConfig      `mapstructure:"crawl"`
	Logging   LoggingConfig    `mapstructure:"logging"`
	Metrics   MetricsConfig    `mapstructure:"metrics"`
	Database  DatabaseConfig   `mapstructure:"database"`
	PubSub    PubSubConfig     `mapstructure:"pubsub"`
	Selectors parser.Selectors `mapstructure:"selectors"`
}

// CrawlConfig governs what is crawled and how hard.
type CrawlConfig struct {
	Category           string  `mapstructure:"category"`
	BaseURL            string  `mapstructure:"base_url"`
	Output             string  `mapstructure:"output"`
	FetcherTimeout     int     `mapstructure:"fetcher_timeout"`
	Concurrency        int     `mapstructure:"concurrency"`
	ExtractConcurrency int     `mapstructure:"extract_concurrency"`
	UserAgent          string  `mapstructure:"user_agent"`
	RespectRobots      bool    `mapstructure:"respect_robots"`
	RateLimitRPS       float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst     int     `mapstructure:"rate_limit_burst"`
}

// LoggingConfig toggles zap features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Verbose     bool   `mapstructure:"verbose"`
	File        string `mapstructure:"file"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	File string `mapstructure:"file"`
}

// DatabaseConfig enables the Postgres sink when DSN is set.
type DatabaseConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for crawl-complete notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from defaults, the optional YAML file at path,
// FLYERS_* environment variables and any flags already bound to v.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.category", "hypermarkte")
	v.SetDefault("crawl.base_url", "https://www.prospektmaschine.de/")
	v.SetDefault("crawl.output", "output.json")
	v.SetDefault("crawl.fetcher_timeout", 10)
	v.SetDefault("crawl.concurrency", 0)
	v.SetDefault("crawl.extract_concurrency", 0)
	v.SetDefault("crawl.user_agent", "Mozilla/5.0 (compatible; prospekt-crawler/1.0)")
	v.SetDefault("crawl.respect_robots", false)
	v.SetDefault("crawl.rate_limit_rps", 0)
	v.SetDefault("crawl.rate_limit_burst", 1)
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.verbose", false)
	v.SetDefault("logging.file", "")
	v.SetDefault("metrics.file", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.table", "flyers")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")

	sel := parser.DefaultSelectors()
	v.SetDefault("selectors.sidebar", sel.Sidebar)
	v.SetDefault("selectors.sidebar_links", sel.SidebarLinks)
	v.SetDefault("selectors.flyer_grid", sel.FlyerGrid)
	v.SetDefault("selectors.flyer", sel.Flyer)
	v.SetDefault("selectors.description", sel.Description)
	v.SetDefault("selectors.content", sel.Content)
	v.SetDefault("selectors.validity", sel.Validity)
	v.SetDefault("selectors.thumbnail", sel.Thumbnail)
}

// normalize trims input and makes category and base URL end with "/".
func (c *Config) normalize() {
	c.Crawl.Category = strings.Trim(strings.TrimSpace(c.Crawl.Category), "/")
	if c.Crawl.Category != "" {
		c.Crawl.Category += "/"
	}
	c.Crawl.BaseURL = strings.TrimSpace(c.Crawl.BaseURL)
	if c.Crawl.BaseURL != "" && !strings.HasSuffix(c.Crawl.BaseURL, "/") {
		c.Crawl.BaseURL += "/"
	}
	c.Crawl.Output = strings.TrimSpace(c.Crawl.Output)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	var errs []error
	if c.Crawl.Category == "" {
		errs = append(errs, errors.New("crawl.category is required"))
	}
	if c.Crawl.Output == "" {
		errs = append(errs, errors.New("crawl.output is required"))
	}
	if c.Crawl.BaseURL == "" {
		errs = append(errs, errors.New("crawl.base_url is required"))
	} else if u, err := url.Parse(c.Crawl.BaseURL); err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("crawl.base_url must be an absolute http(s) url, got %q", c.Crawl.BaseURL))
	}
	if c.Crawl.FetcherTimeout <= 0 {
		errs = append(errs, errors.New("crawl.fetcher_timeout must be > 0"))
	}
	if c.Crawl.Concurrency < 0 {
		errs = append(errs, errors.New("crawl.concurrency must be >= 0"))
	}
	if c.Crawl.ExtractConcurrency < 0 {
		errs = append(errs, errors.New("crawl.extract_concurrency must be >= 0"))
	}
	if c.Crawl.RateLimitRPS < 0 {
		errs = append(errs, errors.New("crawl.rate_limit_rps must be >= 0"))
	}
	if c.Crawl.RateLimitBurst < 0 {
		errs = append(errs, errors.New("crawl.rate_limit_burst must be >= 0"))
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		errs = append(errs, errors.New("pubsub.project_id must be set when pubsub.topic_name is set"))
	}
	if c.Database.MaxConns < 0 {
		errs = append(errs, errors.New("database.max_conns must be >= 0"))
	}
	return errors.Join(errs...)
}

// CategoryURL is the page listing the category's shops.
func (c Config) CategoryURL() string {
	return c.Crawl.BaseURL + c.Crawl.Category
}

// FetcherTimeout converts crawl.fetcher_timeout into a duration.
func (c Config) FetcherTimeout() time.Duration {
	return time.Duration(c.Crawl.FetcherTimeout) * time.Second
}

// RemoteOutput reports whether the output destination is a gs:// URI.
func (c Config) RemoteOutput() bool {
	return strings.HasPrefix(c.Crawl.Output, "gs://")
}
