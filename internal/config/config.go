// Package config loads and validates pagefold configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// OutputKind selects the conversion strategy and bundle format for a run.
type OutputKind string

// Supported output kinds.
const (
	KindText     OutputKind = "text"
	KindMarkdown OutputKind = "markdown"
	KindPDF      OutputKind = "pdf"
)

// Ext returns the file extension used for artifacts and bundles of this kind.
func (k OutputKind) Ext() string {
	switch k {
	case KindMarkdown:
		return ".md"
	case KindPDF:
		return ".pdf"
	default:
		return ".txt"
	}
}

// MarkdownPolicy controls how the markdown strategy sources page content.
type MarkdownPolicy string

// Supported markdown sub-policies.
const (
	PolicyOnlyHTML     MarkdownPolicy = "only-html"
	PolicyOnlyMD       MarkdownPolicy = "only-md"
	PolicyPrioritizeMD MarkdownPolicy = "prioritize-md"
)

// Config captures all run configuration knobs loaded via Viper.
type Config struct {
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Output   OutputConfig   `mapstructure:"output"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Render   RenderConfig   `mapstructure:"render"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// CrawlConfig governs frontier discovery.
type CrawlConfig struct {
	SeedURL         string   `mapstructure:"seed_url"`
	AllowedPrefixes []string `mapstructure:"allowed_prefixes"`
	MaxURLs         int      `mapstructure:"max_urls"`
	Concurrency     int      `mapstructure:"concurrency"`
}

// OutputConfig controls bundle naming, format, and sizing.
type OutputConfig struct {
	Dir            string         `mapstructure:"dir"`
	Name           string         `mapstructure:"name"`
	Kind           OutputKind     `mapstructure:"kind"`
	MarkdownPolicy MarkdownPolicy `mapstructure:"markdown_policy"`
	MaxBundleMB    int            `mapstructure:"max_bundle_mb"`
	MaxBundleItems int            `mapstructure:"max_bundle_items"`
}

// HTTPConfig configures the HTTP fetcher.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
}

// RenderConfig configures the headless rendering subsystem.
type RenderConfig struct {
	MaxParallel       int `mapstructure:"max_parallel"`
	NavTimeoutSeconds int `mapstructure:"nav_timeout_seconds"`
}

// PipelineConfig sizes the transform worker pool and its queues.
type PipelineConfig struct {
	Workers    int `mapstructure:"workers"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MaxBundleBytes converts the configured megabyte cap into bytes.
func (c Config) MaxBundleBytes() int64 {
	return int64(c.Output.MaxBundleMB) * 1024 * 1024
}

// HTTPTimeout returns the fetch timeout as a duration.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// NavTimeout returns the renderer navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Render.NavTimeoutSeconds) * time.Second
}

// Load builds a Config from disk, environment, and the supplied viper
// instance (which may already carry flag bindings). Passing nil uses a
// fresh instance.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	v.SetEnvPrefix("PAGEFOLD")
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

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	cfg.applyDerived()

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.max_urls", 500)
	v.SetDefault("crawl.concurrency", 20)
	v.SetDefault("output.kind", string(KindText))
	v.SetDefault("output.markdown_policy", string(PolicyOnlyHTML))
	v.SetDefault("output.max_bundle_mb", 99)
	v.SetDefault("output.max_bundle_items", 50)
	v.SetDefault("http.timeout_seconds", 20)
	v.SetDefault("http.user_agent", "pagefold/1.0 (+https://github.com/pagefold/pagefold)")
	v.SetDefault("render.max_parallel", 2)
	v.SetDefault("render.nav_timeout_seconds", 30)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_depth", 64)
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	seed, err := url.Parse(c.Crawl.SeedURL)
	if err != nil || c.Crawl.SeedURL == "" {
		return fmt.Errorf("crawl.seed_url must be a valid URL")
	}
	if seed.Scheme != "http" && seed.Scheme != "https" {
		return fmt.Errorf("crawl.seed_url must use http or https, got %q", seed.Scheme)
	}
	if c.Crawl.MaxURLs <= 0 {
		return fmt.Errorf("crawl.max_urls must be > 0")
	}
	if c.Crawl.Concurrency < 0 {
		return fmt.Errorf("crawl.concurrency must be >= 0")
	}
	switch c.Output.Kind {
	case KindText, KindMarkdown, KindPDF:
	default:
		return fmt.Errorf("output.kind must be one of text, markdown, pdf; got %q", c.Output.Kind)
	}
	if c.Output.Kind == KindMarkdown {
		switch c.Output.MarkdownPolicy {
		case PolicyOnlyHTML, PolicyOnlyMD, PolicyPrioritizeMD:
		default:
			return fmt.Errorf("output.markdown_policy must be one of only-html, only-md, prioritize-md; got %q", c.Output.MarkdownPolicy)
		}
	}
	if c.Output.MaxBundleMB <= 0 {
		return fmt.Errorf("output.max_bundle_mb must be > 0")
	}
	if c.Output.MaxBundleItems <= 0 {
		return fmt.Errorf("output.max_bundle_items must be > 0")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be > 0")
	}
	if c.Pipeline.QueueDepth <= 0 {
		return fmt.Errorf("pipeline.queue_depth must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Output.Kind == KindPDF && c.Render.MaxParallel <= 0 {
		return fmt.Errorf("render.max_parallel must be > 0 for pdf output")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when the status server is enabled")
	}
	return nil
}

// applyDerived fills output naming gaps from the seed URL. Validate has
// already confirmed the seed parses.
func (c *Config) applyDerived() {
	seed, err := url.Parse(c.Crawl.SeedURL)
	if err != nil {
		return
	}
	if c.Output.Name == "" {
		c.Output.Name = deriveOutputName(seed)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = sanitizeName(seed.Host)
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "pagefold-out"
	}
}

func deriveOutputName(seed *url.URL) string {
	name := sanitizeName(seed.Host + strings.ReplaceAll(path.Clean(seed.Path), "/", "_"))
	if name == "" {
		return "crawled_output"
	}
	return name
}

// sanitizeName keeps letters, digits, spaces, hyphens, and underscores.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), " .")
}
