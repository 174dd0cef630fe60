package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "MATERIAL_HARVESTER_CONFIG"
	licenseKeyEnv    = "MERLOT_LICENSE_KEY"
	databaseDSNEnv   = "DATABASE_DSN"
	defaultUserAgent = "MaterialHarvester/1.0"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Download DownloadConfig `yaml:"download"`
	Index    IndexConfig    `yaml:"index"`
	Output   OutputConfig   `yaml:"output"`
	Database DatabaseConfig `yaml:"database"`
}

// LoggingConfig controls console log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// CatalogConfig describes the MERLOT metadata API upstream.
type CatalogConfig struct {
	BaseURL      string `yaml:"baseUrl"`
	LicenseKey   string `yaml:"licenseKey"`
	SnapshotPath string `yaml:"snapshotPath"`
	PageSize     int    `yaml:"pageSize"`
}

// DownloadConfig bounds the fetch-and-cache stage.
type DownloadConfig struct {
	CacheDir        string  `yaml:"cacheDir"`
	Concurrency     int     `yaml:"concurrency"`
	RetryCeiling    int     `yaml:"retryCeiling"`
	BackoffBaseMs   int     `yaml:"backoffBaseMs"`
	BackoffMaxMs    int     `yaml:"backoffMaxMs"`
	BackoffJitter   float64 `yaml:"backoffJitter"`
	MaxPayloadBytes int64   `yaml:"maxPayloadBytes"`
	TimeoutSec      int     `yaml:"timeoutSec"`
	UserAgent       string  `yaml:"userAgent"`
}

// Timeout resolves the per-request timeout.
func (d DownloadConfig) Timeout() time.Duration {
	if d.TimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(d.TimeoutSec) * time.Second
}

// BackoffBase resolves the initial retry interval.
func (d DownloadConfig) BackoffBase() time.Duration {
	if d.BackoffBaseMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(d.BackoffBaseMs) * time.Millisecond
}

// BackoffMax resolves the retry interval ceiling.
func (d DownloadConfig) BackoffMax() time.Duration {
	if d.BackoffMaxMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.BackoffMaxMs) * time.Millisecond
}

// IndexConfig tunes tokenization and TF-IDF scoring.
type IndexConfig struct {
	MinTokenLength   int      `yaml:"minTokenLength"`
	TopN             int      `yaml:"topN"`
	ScoreThreshold   float64  `yaml:"scoreThreshold"`
	DerivedStopWords int      `yaml:"derivedStopWords"`
	Stemming         bool     `yaml:"stemming"`
	StopWords        []string `yaml:"stopWords"`
}

// OutputConfig names the tabular result files.
type OutputConfig struct {
	KeywordsPath        string `yaml:"keywordsPath"`
	BrokenLinksPath     string `yaml:"brokenLinksPath"`
	MismatchedTypesPath string `yaml:"mismatchedTypesPath"`
}

// DatabaseConfig describes the optional Postgres keyword sink.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(licenseKeyEnv); v != "" {
		c.Catalog.LicenseKey = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Catalog.BaseURL != "" {
		base.Catalog.BaseURL = override.Catalog.BaseURL
	}
	if override.Catalog.LicenseKey != "" {
		base.Catalog.LicenseKey = override.Catalog.LicenseKey
	}
	if override.Catalog.SnapshotPath != "" {
		base.Catalog.SnapshotPath = override.Catalog.SnapshotPath
	}
	if override.Catalog.PageSize > 0 {
		base.Catalog.PageSize = override.Catalog.PageSize
	}

	if override.Download.CacheDir != "" {
		base.Download.CacheDir = override.Download.CacheDir
	}
	if override.Download.Concurrency > 0 {
		base.Download.Concurrency = override.Download.Concurrency
	}
	if override.Download.RetryCeiling > 0 {
		base.Download.RetryCeiling = override.Download.RetryCeiling
	}
	if override.Download.BackoffBaseMs > 0 {
		base.Download.BackoffBaseMs = override.Download.BackoffBaseMs
	}
	if override.Download.BackoffMaxMs > 0 {
		base.Download.BackoffMaxMs = override.Download.BackoffMaxMs
	}
	if override.Download.BackoffJitter > 0 {
		base.Download.BackoffJitter = override.Download.BackoffJitter
	}
	if override.Download.MaxPayloadBytes > 0 {
		base.Download.MaxPayloadBytes = override.Download.MaxPayloadBytes
	}
	if override.Download.TimeoutSec > 0 {
		base.Download.TimeoutSec = override.Download.TimeoutSec
	}
	if override.Download.UserAgent != "" {
		base.Download.UserAgent = override.Download.UserAgent
	}

	if override.Index.MinTokenLength > 0 {
		base.Index.MinTokenLength = override.Index.MinTokenLength
	}
	if override.Index.TopN > 0 {
		base.Index.TopN = override.Index.TopN
	}
	if override.Index.ScoreThreshold > 0 {
		base.Index.ScoreThreshold = override.Index.ScoreThreshold
	}
	if override.Index.DerivedStopWords > 0 {
		base.Index.DerivedStopWords = override.Index.DerivedStopWords
	}
	if override.Index.Stemming {
		base.Index.Stemming = true
	}
	if len(override.Index.StopWords) > 0 {
		base.Index.StopWords = override.Index.StopWords
	}

	if override.Output.KeywordsPath != "" {
		base.Output.KeywordsPath = override.Output.KeywordsPath
	}
	if override.Output.BrokenLinksPath != "" {
		base.Output.BrokenLinksPath = override.Output.BrokenLinksPath
	}
	if override.Output.MismatchedTypesPath != "" {
		base.Output.MismatchedTypesPath = override.Output.MismatchedTypesPath
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Catalog: CatalogConfig{
			BaseURL:      "https://www.merlot.org/merlot",
			SnapshotPath: "materials/metadata.json",
			PageSize:     100,
		},
		Download: DownloadConfig{
			CacheDir:        "materials/cache",
			Concurrency:     35,
			RetryCeiling:    3,
			BackoffBaseMs:   500,
			BackoffMaxMs:    30000,
			BackoffJitter:   0.5,
			MaxPayloadBytes: 64 << 20,
			TimeoutSec:      60,
			UserAgent:       defaultUserAgent,
		},
		Index: IndexConfig{
			MinTokenLength:   3,
			TopN:             10,
			ScoreThreshold:   0.02,
			DerivedStopWords: 200,
			StopWords:        defaultStopWords,
		},
		Output: OutputConfig{
			KeywordsPath:        "materials/tf_idf_results.csv",
			BrokenLinksPath:     "materials/broken_urls.csv",
			MismatchedTypesPath: "materials/mismatched_filetypes.csv",
		},
	}
}

var defaultStopWords = []string{
	"the", "and", "for", "are", "but", "not", "you", "all", "can", "had",
	"her", "was", "one", "our", "out", "has", "have", "this", "that", "with",
	"they", "will", "from", "been", "were", "when", "what", "which", "their",
	"there", "would", "about", "into", "than", "then", "them", "these", "some",
	"such", "also", "more", "other", "each", "between", "through", "during",
	"before", "after", "under", "over", "only", "very", "should", "because",
}
