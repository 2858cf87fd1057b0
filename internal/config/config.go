// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Match strategies for picking a search result.
const (
	MatchExact = "exact"
	MatchFirst = "first"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	LogFormat            string        `mapstructure:"LOG_FORMAT"`
	DBURL                string        `mapstructure:"DB_URL"`
	GithubAPIURL         string        `mapstructure:"GITHUB_API_URL"`
	GithubWebURL         string        `mapstructure:"GITHUB_WEB_URL"`
	UserAgent            string        `mapstructure:"USER_AGENT"`
	ReportPath           string        `mapstructure:"REPORT_PATH"`
	EnrichConcurrency    int           `mapstructure:"ENRICH_CONCURRENCY"`
	SearchRatePerMinute  int           `mapstructure:"SEARCH_RATE_PER_MINUTE"`
	SearchBurst          int           `mapstructure:"SEARCH_BURST"`
	MaxRetries           int           `mapstructure:"MAX_RETRIES"`
	RetryInitialInterval time.Duration `mapstructure:"RETRY_INITIAL_INTERVAL"`
	RequestTimeout       time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ListMaxPages         int           `mapstructure:"LIST_MAX_PAGES"`
	MatchStrategy        string        `mapstructure:"MATCH_STRATEGY"`
	AuthMaxAttempts      int           `mapstructure:"AUTH_MAX_ATTEMPTS"`
}

var defaults = map[string]any{
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "json",
	"DB_URL":                 "sqlite://github_repos.db",
	"GITHUB_API_URL":         "https://api.github.com/",
	"GITHUB_WEB_URL":         "https://github.com/",
	"USER_AGENT":             "github-repo-enricher/1.0 (+https://github.com)",
	"REPORT_PATH":            "repos.md",
	"ENRICH_CONCURRENCY":     5,
	"SEARCH_RATE_PER_MINUTE": 30,
	"SEARCH_BURST":           5,
	"MAX_RETRIES":            3,
	"RETRY_INITIAL_INTERVAL": "1s",
	"REQUEST_TIMEOUT":        "15s",
	"LIST_MAX_PAGES":         1,
	"MATCH_STRATEGY":         MatchExact,
	"AUTH_MAX_ATTEMPTS":      3,
}

// LoadConfig reads configuration from a .env file in dir (if present) and environment variables.
func LoadConfig(dir string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	// Load from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(dir)
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.DBURL == "" {
		return errors.New("DB_URL is a required configuration field")
	}
	if !strings.HasPrefix(c.DBURL, "sqlite://") &&
		!strings.HasPrefix(c.DBURL, "postgres://") &&
		!strings.HasPrefix(c.DBURL, "postgresql://") {
		return errors.New("DB_URL must start with sqlite://, postgres:// or postgresql://")
	}
	for key, raw := range map[string]string{"GITHUB_API_URL": c.GithubAPIURL, "GITHUB_WEB_URL": c.GithubWebURL} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, raw)
		}
	}
	if c.UserAgent == "" {
		return errors.New("USER_AGENT must not be empty")
	}
	if c.ReportPath == "" {
		return errors.New("REPORT_PATH must not be empty")
	}
	if c.EnrichConcurrency < 1 {
		return errors.New("ENRICH_CONCURRENCY must be a positive integer")
	}
	if c.SearchRatePerMinute < 1 {
		return errors.New("SEARCH_RATE_PER_MINUTE must be a positive integer")
	}
	if c.SearchBurst < 1 {
		return errors.New("SEARCH_BURST must be a positive integer")
	}
	if c.MaxRetries < 1 {
		return errors.New("MAX_RETRIES must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be a positive duration")
	}
	if c.ListMaxPages < 1 {
		return errors.New("LIST_MAX_PAGES must be at least 1")
	}
	if c.AuthMaxAttempts < 1 {
		return errors.New("AUTH_MAX_ATTEMPTS must be at least 1")
	}
	switch c.MatchStrategy {
	case MatchExact, MatchFirst:
	default:
		return fmt.Errorf("MATCH_STRATEGY must be %q or %q", MatchExact, MatchFirst)
	}
	return nil
}
