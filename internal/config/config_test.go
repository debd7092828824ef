package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Analysis.APIKey = "test-key"
	return cfg
}

func TestDefault_Values(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 60, cfg.Analysis.RateLimitMax)
	assert.Equal(t, time.Minute, cfg.Analysis.RateLimitWindow.Duration())
	assert.Equal(t, 3, cfg.Analysis.RetryMaxAttempts)
	assert.Equal(t, time.Second, cfg.Analysis.RetryBaseDelay.Duration())
	assert.Equal(t, 3, cfg.Discussion.MaxStatementsPerUser)
	assert.Equal(t, 2, cfg.Discussion.Participants)
	assert.Equal(t, 10, cfg.Discussion.MinLength)
	assert.Equal(t, 1000, cfg.Discussion.MaxLength)
	assert.Equal(t, 20, cfg.SteelManning.MinLength)
	assert.InDelta(t, 0.3, cfg.SteelManning.SimilarityThreshold, 1e-9)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.True(t, cfg.Analysis.Redact)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "grpc", cfg.Telemetry.Protocol)
	assert.Equal(t, "steelman", cfg.Telemetry.ServiceName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "gemini without key",
			mutate:  func(c *Config) { c.Analysis.APIKey = "" },
			wantErr: "api_key",
		},
		{
			name:   "fake provider needs no key",
			mutate: func(c *Config) { c.Analysis.Provider = "fake"; c.Analysis.APIKey = "" },
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Analysis.Provider = "openai" },
			wantErr: "Provider",
		},
		{
			name:    "unknown store driver",
			mutate:  func(c *Config) { c.Store.Driver = "postgres" },
			wantErr: "Driver",
		},
		{
			name:    "badger needs path",
			mutate:  func(c *Config) { c.Store.Driver = "badger" },
			wantErr: "Path",
		},
		{
			name:    "max length below min",
			mutate:  func(c *Config) { c.Discussion.MaxLength = 5 },
			wantErr: "MaxLength",
		},
		{
			name:    "single participant",
			mutate:  func(c *Config) { c.Discussion.Participants = 1 },
			wantErr: "Participants",
		},
		{
			name:    "similarity out of range",
			mutate:  func(c *Config) { c.SteelManning.SimilarityThreshold = 1.5 },
			wantErr: "SimilarityThreshold",
		},
		{
			name:    "max delay below base",
			mutate:  func(c *Config) { c.Analysis.RetryMaxDelay = Duration(time.Millisecond) },
			wantErr: "retry_max_delay",
		},
		{
			name:    "telemetry enabled without endpoint",
			mutate:  func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.Endpoint = "" },
			wantErr: "Endpoint",
		},
		{
			name:   "telemetry disabled without endpoint",
			mutate: func(c *Config) { c.Telemetry.Endpoint = "" },
		},
		{
			name:    "unknown telemetry protocol",
			mutate:  func(c *Config) { c.Telemetry.Protocol = "thrift" },
			wantErr: "Protocol",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 2 },
			wantErr: "SampleRate",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "Level",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecret_NeverPrinted(t *testing.T) {
	s := Secret("AIza-very-secret")

	assert.Equal(t, "[REDACTED]", s.String())
	out, err := s.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"[REDACTED]"`, string(out))
	assert.Equal(t, "AIza-very-secret", s.Value())
	assert.True(t, s.IsSet())
	assert.False(t, Secret("").IsSet())
}

func TestDuration_UnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-1s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
