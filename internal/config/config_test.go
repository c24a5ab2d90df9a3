package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "hypermarkte/", cfg.Crawl.Category)
	assert.Equal(t, "https://www.prospektmaschine.de/", cfg.Crawl.BaseURL)
	assert.Equal(t, "output.json", cfg.Crawl.Output)
	assert.Equal(t, 10*time.Second, cfg.FetcherTimeout())
	assert.Equal(t, "https://www.prospektmaschine.de/hypermarkte/", cfg.CategoryURL())
	assert.Equal(t, "#sidebar", cfg.Selectors.Sidebar)
	assert.Equal(t, ".letaky-grid", cfg.Selectors.FlyerGrid)
	assert.Equal(t, "flyers", cfg.Database.Table)
	assert.False(t, cfg.RemoteOutput())
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawl:
  category: /drogerie
  base_url: https://example.com/prospekte
  output: gs://flyers/out.json
  fetcher_timeout: 3
  concurrency: 6
  rate_limit_rps: 2.5
  rate_limit_burst: 2
logging:
  development: true
database:
  dsn: postgres://localhost/flyers
  table: prospekte
pubsub:
  project_id: my-project
  topic_name: flyers-done
selectors:
  sidebar: nav.shops
`
	require.NoError(t, os.WriteFile(path, []byte(configYAML), 0o600))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "drogerie/", cfg.Crawl.Category)
	assert.Equal(t, "https://example.com/prospekte/drogerie/", cfg.CategoryURL())
	assert.Equal(t, 3*time.Second, cfg.FetcherTimeout())
	assert.Equal(t, 6, cfg.Crawl.Concurrency)
	assert.InDelta(t, 2.5, cfg.Crawl.RateLimitRPS, 0.0001)
	assert.True(t, cfg.RemoteOutput())
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, "prospekte", cfg.Database.Table)
	assert.Equal(t, "flyers-done", cfg.PubSub.TopicName)
	assert.Equal(t, "nav.shops", cfg.Selectors.Sidebar)
	assert.Equal(t, "li a", cfg.Selectors.SidebarLinks, "unset selectors keep defaults")
}

func TestLoadFlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl:\n  category: baumarkt\n"), 0o600))

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("category", "hypermarkte", "")
	require.NoError(t, fs.Parse([]string{"--category", "discounter"}))
	v := viper.New()
	require.NoError(t, v.BindPFlag("crawl.category", fs.Lookup("category")))

	cfg, err := Load(v, path)
	require.NoError(t, err)
	assert.Equal(t, "discounter/", cfg.Crawl.Category)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FLYERS_CRAWL_CATEGORY", "elektronik")
	t.Setenv("FLYERS_CRAWL_FETCHER_TIMEOUT", "25")
	t.Setenv("FLYERS_LOGGING_VERBOSE", "true")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "elektronik/", cfg.Crawl.Category)
	assert.Equal(t, 25*time.Second, cfg.FetcherTimeout())
	assert.True(t, cfg.Logging.Verbose)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		cfg, err := Load(viper.New(), "")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "zero timeout", mutate: func(c *Config) { c.Crawl.FetcherTimeout = 0 }, wantErr: "crawl.fetcher_timeout"},
		{name: "empty category", mutate: func(c *Config) { c.Crawl.Category = "" }, wantErr: "crawl.category"},
		{name: "empty output", mutate: func(c *Config) { c.Crawl.Output = "" }, wantErr: "crawl.output"},
		{name: "relative base url", mutate: func(c *Config) { c.Crawl.BaseURL = "prospektmaschine.de/" }, wantErr: "crawl.base_url"},
		{name: "ftp base url", mutate: func(c *Config) { c.Crawl.BaseURL = "ftp://example.com/" }, wantErr: "crawl.base_url"},
		{name: "negative concurrency", mutate: func(c *Config) { c.Crawl.Concurrency = -1 }, wantErr: "crawl.concurrency"},
		{name: "negative rate", mutate: func(c *Config) { c.Crawl.RateLimitRPS = -1 }, wantErr: "crawl.rate_limit_rps"},
		{name: "topic without project", mutate: func(c *Config) { c.PubSub.TopicName = "t" }, wantErr: "pubsub.project_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	cfg := Config{Crawl: CrawlConfig{Category: " /baumarkt/ ", BaseURL: "https://example.com", Output: " out.json "}}
	cfg.normalize()
	assert.Equal(t, "baumarkt/", cfg.Crawl.Category)
	assert.Equal(t, "https://example.com/", cfg.Crawl.BaseURL)
	assert.Equal(t, "out.json", cfg.Crawl.Output)
}
