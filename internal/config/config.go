// Package config provides configuration loading for steelman.
//
// Values are resolved defaults first, then an optional YAML file, then
// STEELMAN_-prefixed environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config holds the complete steelman configuration.
type Config struct {
	Analysis     AnalysisConfig     `koanf:"analysis"`
	Discussion   DiscussionConfig   `koanf:"discussion"`
	SteelManning SteelManningConfig `koanf:"steelmanning"`
	Store        StoreConfig        `koanf:"store"`
	Logging      LoggingConfig      `koanf:"logging"`
	Telemetry    TelemetryConfig    `koanf:"telemetry"`
}

// AnalysisConfig configures the text-analysis provider and the resilience
// layer wrapped around it.
type AnalysisConfig struct {
	Provider        string   `koanf:"provider" validate:"oneof=gemini fake"`
	Model           string   `koanf:"model" validate:"required"`
	APIKey          Secret   `koanf:"api_key"`
	Temperature     float32  `koanf:"temperature" validate:"gte=0,lte=2"`
	TopK            int32    `koanf:"top_k" validate:"gte=1"`
	TopP            float32  `koanf:"top_p" validate:"gt=0,lte=1"`
	MaxOutputTokens int32    `koanf:"max_output_tokens" validate:"gte=1"`
	Timeout         Duration `koanf:"timeout" validate:"gt=0"`
	// TemplatesFile optionally points to a YAML file of extra prompt templates.
	TemplatesFile string `koanf:"templates_file"`
	// Redact replaces secrets in prompt parameters before they leave the process.
	Redact bool `koanf:"redact"`
	// AllowlistFile optionally points to a gitleaks-style TOML allowlist.
	AllowlistFile string `koanf:"allowlist_file"`

	RateLimitMax    int      `koanf:"rate_limit_max" validate:"gte=1"`
	RateLimitWindow Duration `koanf:"rate_limit_window" validate:"gt=0"`

	RetryMaxAttempts int      `koanf:"retry_max_attempts" validate:"gte=1,lte=10"`
	RetryBaseDelay   Duration `koanf:"retry_base_delay" validate:"gt=0"`
	RetryMaxDelay    Duration `koanf:"retry_max_delay"`
}

// DiscussionConfig configures statement limits.
type DiscussionConfig struct {
	MaxStatementsPerUser int `koanf:"max_statements_per_user" validate:"gte=1"`
	Participants         int `koanf:"participants" validate:"gte=2"`
	MinLength            int `koanf:"min_length" validate:"gte=1"`
	MaxLength            int `koanf:"max_length" validate:"gtfield=MinLength"`
}

// SteelManningConfig configures the restatement pre-checks.
type SteelManningConfig struct {
	MinLength           int     `koanf:"min_length" validate:"gte=1"`
	MaxLength           int     `koanf:"max_length" validate:"gtfield=MinLength"`
	SimilarityThreshold float64 `koanf:"similarity_threshold" validate:"gte=0,lte=1"`
}

// StoreConfig selects the checkpoint backend.
type StoreConfig struct {
	Driver string `koanf:"driver" validate:"oneof=memory badger sqlite"`
	Path   string `koanf:"path" validate:"required_unless=Driver memory"`
}

// LoggingConfig is the subset of logging settings exposed to users.
type LoggingConfig struct {
	Level    string `koanf:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Format   string `koanf:"format" validate:"omitempty,oneof=json console"`
	OTEL     bool   `koanf:"otel"`
	Sampling bool   `koanf:"sampling"`
}

// TelemetryConfig configures OpenTelemetry export. Disabled by default.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint" validate:"required_if=Enabled true"`
	// Protocol is grpc or http/protobuf.
	Protocol        string   `koanf:"protocol" validate:"omitempty,oneof=grpc http/protobuf"`
	Insecure        bool     `koanf:"insecure"`
	TLSSkipVerify   bool     `koanf:"tls_skip_verify"`
	ServiceName     string   `koanf:"service_name" validate:"required"`
	ServiceVersion  string   `koanf:"service_version"`
	SampleRate      float64  `koanf:"sample_rate" validate:"gte=0,lte=1"`
	Metrics         bool     `koanf:"metrics"`
	ExportInterval  Duration `koanf:"export_interval" validate:"gt=0"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Provider:         "gemini",
			Model:            "gemini-2.0-flash",
			Temperature:      0.7,
			TopK:             40,
			TopP:             0.95,
			MaxOutputTokens:  1024,
			Timeout:          Duration(30 * time.Second),
			RateLimitMax:     60,
			RateLimitWindow:  Duration(time.Minute),
			RetryMaxAttempts: 3,
			RetryBaseDelay:   Duration(time.Second),
			RetryMaxDelay:    Duration(30 * time.Second),
			Redact:           true,
		},
		Discussion: DiscussionConfig{
			MaxStatementsPerUser: 3,
			Participants:         2,
			MinLength:            10,
			MaxLength:            1000,
		},
		SteelManning: SteelManningConfig{
			MinLength:           20,
			MaxLength:           1000,
			SimilarityThreshold: 0.3,
		},
		Store: StoreConfig{
			Driver: "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Endpoint:        "localhost:4317",
			Protocol:        "grpc",
			Insecure:        true,
			ServiceName:     "steelman",
			ServiceVersion:  "0.1.0",
			SampleRate:      1.0,
			Metrics:         true,
			ExportInterval:  Duration(15 * time.Second),
			ShutdownTimeout: Duration(5 * time.Second),
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Analysis.Provider == "gemini" && !c.Analysis.APIKey.IsSet() {
		return fmt.Errorf("invalid configuration: analysis.api_key is required for the gemini provider")
	}
	if c.Analysis.RetryMaxDelay > 0 && c.Analysis.RetryMaxDelay < c.Analysis.RetryBaseDelay {
		return fmt.Errorf("invalid configuration: analysis.retry_max_delay must be >= retry_base_delay")
	}
	return nil
}
