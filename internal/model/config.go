package model

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete claimwatch configuration
type Config struct {
	Detection    DetectionConfig    `yaml:"detection" mapstructure:"detection"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Sources      SourcesConfig      `yaml:"sources" mapstructure:"sources"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// DetectionConfig holds rule thresholds
type DetectionConfig struct {
	StaleDraftDays     int      `yaml:"stale_draft_days" mapstructure:"stale_draft_days" validate:"gte=0"`
	HangingDays        int      `yaml:"hanging_days" mapstructure:"hanging_days" validate:"gte=0"`
	UnresolvedStatuses []string `yaml:"unresolved_statuses" mapstructure:"unresolved_statuses"` // empty: every status counts
}

// CacheConfig controls report caching
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir" mapstructure:"disk_dir"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls the batch worker pool
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// RateLimitingConfig throttles snapshot loads per source
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size" validate:"gte=0"`

	// PerSource overrides the limit for one source key, e.g. "postgres"
	// or "minio:s3.example.com"
	PerSource []SourceRate `yaml:"per_source" mapstructure:"per_source" validate:"dive"`
}

// SourceRate is the load limit for one source key
type SourceRate struct {
	Key               string  `yaml:"key" mapstructure:"key" validate:"required"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`
	BurstSize         int     `yaml:"burst_size,omitempty" mapstructure:"burst_size" validate:"gte=0"`
}

// SourcesConfig holds connection settings for remote snapshot sources
type SourcesConfig struct {
	Postgres PostgresConfig `yaml:"postgres" mapstructure:"postgres"`
	Minio    MinioConfig    `yaml:"minio" mapstructure:"minio"`
}

// PostgresConfig points at the billing database
type PostgresConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// MinioConfig points at an S3-compatible snapshot bucket
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr              string        `yaml:"addr" mapstructure:"addr" validate:"required"`
	AllowedOrigins    []string      `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute" validate:"gte=0"`
	ReadTimeout       time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes" validate:"gte=0"`
}

// LogConfig configures zap
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Env   string `yaml:"env" mapstructure:"env" validate:"oneof=development production"`
}

// LLMConfig configures the optional digest provider
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai ollama"`
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
	RedactPII     bool `yaml:"redact_pii" mapstructure:"redact_pii"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			StaleDraftDays:     14,
			HangingDays:        30,
			UnresolvedStatuses: []string{"draft", "submitted", "pending", "overdue", "rejected"},
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 5 * time.Minute,
			DiskDir:   "",
			DiskTTL:   24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Server: ServerConfig{
			Addr:              ":8080",
			RequestsPerMinute: 120,
			ReadTimeout:       15 * time.Second,
			MaxBodyBytes:      10 << 20,
		},
		Log: LogConfig{
			Level: "info",
			Env:   "production",
		},
		LLM: LLMConfig{
			Provider:  "", // Disabled by default
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 800,
		},
		Output: OutputConfig{
			IncludeFooter: true,
			RedactPII:     true,
		},
	}
}

var configValidator = validator.New()

// Validate checks the configuration for out-of-range values
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
