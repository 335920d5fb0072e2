package model

import (
	"fmt"
	"strings"
	"time"
)

// Upstream limits of the occurrence search API
const (
	MaxPageSize   = 300
	OffsetCeiling = 100_000
)

// Config holds all runtime configuration
type Config struct {
	HTTP         HTTPConfig         `yaml:"http" mapstructure:"http"`
	Upstream     UpstreamConfig     `yaml:"upstream" mapstructure:"upstream"`
	Sampling     SamplingConfig     `yaml:"sampling" mapstructure:"sampling"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Retry        RetryConfig        `yaml:"retry" mapstructure:"retry"`
	Resolver     ResolverConfig     `yaml:"resolver" mapstructure:"resolver"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// HTTPConfig configures the shared upstream transport
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxIdleConns int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// UpstreamConfig describes the taxonomy/occurrence service
type UpstreamConfig struct {
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	PageSize      int    `yaml:"page_size" mapstructure:"page_size"`
	OffsetCeiling int    `yaml:"offset_ceiling" mapstructure:"offset_ceiling"`
}

// SamplingConfig controls the returned sample size.
// Seed 0 picks a fresh random seed per fetch.
type SamplingConfig struct {
	Cap  int    `yaml:"cap" mapstructure:"cap"`
	Seed uint64 `yaml:"seed" mapstructure:"seed"`
}

// RateLimitingConfig throttles requests to the upstream host.
// A non-positive RequestsPerSecond disables throttling.
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// RetryConfig bounds the backoff applied to rate-limited upstream responses
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
}

// ResolverConfig tunes name resolution. MinConfidence 0 accepts every match.
type ResolverConfig struct {
	MinConfidence int `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// ServerConfig configures the serve command
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr"`
	MaxConns          int           `yaml:"max_conns" mapstructure:"max_conns"`
	RequestTimeout    time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	ClientRatePerSec  float64       `yaml:"client_rate_per_sec" mapstructure:"client_rate_per_sec"`
	ClientBurst       int           `yaml:"client_burst" mapstructure:"client_burst"`
	ClientIdleTimeout time.Duration `yaml:"client_idle_timeout" mapstructure:"client_idle_timeout"`
}

// ConcurrencyConfig sizes the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LogConfig configures slog output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "bio-explorer/0.1 (+https://github.com/jackedney/bio-explorer)",
			MaxBodyBytes: 16 << 20,
			MaxIdleConns: 16,
		},
		Upstream: UpstreamConfig{
			BaseURL:       "https://api.gbif.org/v1",
			PageSize:      MaxPageSize,
			OffsetCeiling: OffsetCeiling,
		},
		Sampling: SamplingConfig{
			Cap: DefaultCap,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         2,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			MaxConns:          256,
			RequestTimeout:    2 * time.Minute,
			ClientRatePerSec:  2,
			ClientBurst:       10,
			ClientIdleTimeout: 10 * time.Minute,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that limits are within what the upstream accepts
func (c *Config) Validate() error {
	var errs []string

	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.base_url is required")
	}
	if c.Upstream.PageSize <= 0 || c.Upstream.PageSize > MaxPageSize {
		errs = append(errs, fmt.Sprintf("upstream.page_size must be 1-%d, got %d", MaxPageSize, c.Upstream.PageSize))
	}
	if c.Upstream.OffsetCeiling <= 0 || c.Upstream.OffsetCeiling > OffsetCeiling {
		errs = append(errs, fmt.Sprintf("upstream.offset_ceiling must be 1-%d, got %d", OffsetCeiling, c.Upstream.OffsetCeiling))
	}
	if c.Sampling.Cap <= 0 {
		errs = append(errs, fmt.Sprintf("sampling.cap must be positive, got %d", c.Sampling.Cap))
	}
	if c.HTTP.Timeout <= 0 {
		errs = append(errs, "http.timeout must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		errs = append(errs, "retry.max_attempts must be positive")
	}
	if c.Resolver.MinConfidence < 0 || c.Resolver.MinConfidence > 100 {
		errs = append(errs, fmt.Sprintf("resolver.min_confidence must be 0-100, got %d", c.Resolver.MinConfidence))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
