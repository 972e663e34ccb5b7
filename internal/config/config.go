package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Extractor implementations selectable via EXTRACTOR.
const (
	ExtractorTar    = "tar"
	ExtractorNative = "native"
)

// DefaultSourceRepos are the yearly globe-history repositories listing the
// published archive parts.
var DefaultSourceRepos = []string{
	"adsblol/globe_history_2023",
	"adsblol/globe_history_2024",
	"adsblol/globe_history_2025",
}

// Config holds all run settings, populated from environment variables.
type Config struct {
	WorkDir      string
	OutputDir    string
	Concurrency  int
	Extractor    string
	BoundaryFile string

	// Source discovery.
	SourceRepos           []string
	TargetRepo            string
	GitHubAPIURL          string
	GitHubToken           string
	ResponseHeaderTimeout time.Duration

	// Run-summary notifier; disabled when no brokers are set.
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	headerTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("RESPONSE_HEADER_TIMEOUT", "30s"))
	if err != nil || headerTimeout <= 0 {
		return nil, errors.New("invalid RESPONSE_HEADER_TIMEOUT")
	}

	concurrency, err := strconv.Atoi(sharedcfg.EnvOrDefault("CONCURRENCY", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONCURRENCY: %w", err)
	}

	repos := DefaultSourceRepos
	if v := os.Getenv("SOURCE_REPOS"); v != "" {
		repos = parseList(v)
	}

	cfg := &Config{
		WorkDir:      sharedcfg.EnvOrDefault("WORK_DIR", "workdir"),
		OutputDir:    sharedcfg.EnvOrDefault("OUTPUT_DIR", "output"),
		Concurrency:  concurrency,
		Extractor:    sharedcfg.EnvOrDefault("EXTRACTOR", ExtractorTar),
		BoundaryFile: os.Getenv("BOUNDARY_FILE"),

		SourceRepos:           repos,
		TargetRepo:            os.Getenv("TARGET_REPO"),
		GitHubAPIURL:          strings.TrimRight(sharedcfg.EnvOrDefault("GITHUB_API_URL", "https://api.github.com"), "/"),
		GitHubToken:           os.Getenv("GITHUB_TOKEN"),
		ResponseHeaderTimeout: headerTimeout,

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "adsb-ingest-runs"),

		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants. Call again after applying command-line overrides.
func (c *Config) Validate() error {
	if c.Concurrency <= 0 {
		return errors.New("CONCURRENCY must be a positive integer")
	}
	if c.WorkDir == "" {
		return errors.New("WORK_DIR is required")
	}
	if c.OutputDir == "" {
		return errors.New("OUTPUT_DIR is required")
	}
	switch c.Extractor {
	case ExtractorTar, ExtractorNative:
	default:
		return fmt.Errorf("EXTRACTOR must be %q or %q, got %q", ExtractorTar, ExtractorNative, c.Extractor)
	}
	if len(c.SourceRepos) == 0 {
		return errors.New("SOURCE_REPOS must list at least one repository")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// NotifierEnabled reports whether run summaries should be published.
func (c *Config) NotifierEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
