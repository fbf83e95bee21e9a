package config

import (
	"fmt"
	"time"
)

// Config represents a dredge.yaml configuration file.
// All values are optional and act as defaults for dredge run flags.
// CLI flags always override config values.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Crawl      CrawlConfig      `yaml:"crawl"`
	Auth       AuthConfig       `yaml:"auth"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Adapter    AdapterConfig    `yaml:"adapter"`
}

// SourceConfig identifies the catalog context to crawl.
type SourceConfig struct {
	Type string `yaml:"type"`
	ID   string `yaml:"id"`
	URL  string `yaml:"url"`
}

// CrawlConfig holds engine tuning defaults from the config file.
type CrawlConfig struct {
	Workers            int      `yaml:"workers"`
	IdleRounds         int      `yaml:"idle_rounds"`
	SettleDelay        Duration `yaml:"settle_delay"`
	WorkerPause        Duration `yaml:"worker_pause"`
	FailureBackoff     Duration `yaml:"failure_backoff"`
	CheckpointInterval Duration `yaml:"checkpoint_interval"`
	FetchTimeout       Duration `yaml:"fetch_timeout"`
	DownloadPreviews   bool     `yaml:"download_previews"`
	PreviewDir         string   `yaml:"preview_dir"`
	ProxyURL           string   `yaml:"proxy_url"`
	AllowedHosts       []string `yaml:"allowed_hosts"`
}

// AuthConfig holds the credentialed-session headers sent on every
// detail fetch. Values normally come from env expansion, e.g.
// "Cookie: ${DREDGE_SESSION_COOKIE}".
type AuthConfig struct {
	Headers map[string]string `yaml:"headers,omitempty"`
}

// CheckpointConfig selects the checkpoint store backend.
type CheckpointConfig struct {
	// Backend is "fs" or "redis". Empty defaults to fs.
	Backend string `yaml:"backend"`
	// Path is the checkpoint file path for the fs backend.
	Path string `yaml:"path"`
	// URL is the Redis connection URL for the redis backend.
	URL string `yaml:"url"`
	// Key overrides the Redis key for the redis backend.
	Key string `yaml:"key,omitempty"`
}

// ArchiveConfig holds snapshot archive defaults from the config file.
type ArchiveConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds completion-notification defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
