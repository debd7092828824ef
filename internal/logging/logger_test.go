package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/steelman/internal/config"
)

func newBufferLogger(t *testing.T, mutate func(*Config)) (*Logger, *bytes.Buffer) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Sampling.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	var buf bytes.Buffer
	logger, err := NewLoggerWithWriter(cfg, &buf, nil)
	require.NoError(t, err)
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
}

func TestNewLogger_NoOutputs(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = true

	_, err := NewLogger(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one output")
}

func TestNewLogger_OTELOutput(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Stdout = false
	cfg.Output.OTEL = true

	logger, err := NewLogger(cfg, noop.NewLoggerProvider())
	require.NoError(t, err)
	logger.Info(context.Background(), "goes to otel")
}

func TestLogger_ContextFields(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)

	ctx := WithSessionID(context.Background(), "sess_1")
	ctx = WithParticipant(ctx, "alice")
	logger.Info(ctx, "statement accepted", zap.Int("remaining", 5))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "statement accepted", lines[0]["msg"])
	assert.Equal(t, "sess_1", lines[0]["session.id"])
	assert.Equal(t, "alice", lines[0]["participant.id"])
	assert.Equal(t, "steelman", lines[0]["service"])
	assert.EqualValues(t, 5, lines[0]["remaining"])
}

func TestLogger_RedactsCredentials(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)

	key := "AIza" + strings.Repeat("x", 35)
	logger.Info(context.Background(), "provider configured",
		zap.String("api_key", key),
		zap.String("detail", "using key "+key),
	)

	out := buf.String()
	assert.NotContains(t, out, key)
	assert.Contains(t, out, "[REDACTED]")
}

func TestLogger_RedactionDisabled(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) { c.Redact = false })

	logger.Info(context.Background(), "raw", zap.String("token", "abc"))
	assert.Contains(t, buf.String(), `"abc"`)
}

func TestLogger_WithKeepsRedaction(t *testing.T) {
	logger, buf := newBufferLogger(t, nil)

	logger.With(zap.String("token", "abc")).Info(context.Background(), "child")
	assert.NotContains(t, buf.String(), `"abc"`)
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) { c.Level = zapcore.WarnLevel })

	ctx := context.Background()
	logger.Info(ctx, "dropped")
	logger.Warn(ctx, "kept")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
	assert.False(t, logger.Enabled(TraceLevel))
}

func TestSampling_NeverDropsWarnings(t *testing.T) {
	logger, buf := newBufferLogger(t, func(c *Config) {
		c.Sampling.Enabled = true
		c.Sampling.Initial = 1
		c.Sampling.Thereafter = 0
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		logger.Info(ctx, "repeated info")
		logger.Warn(ctx, "repeated warn")
	}

	var infos, warns int
	for _, l := range decodeLines(t, buf) {
		switch l["level"] {
		case "info":
			infos++
		case "warn":
			warns++
		}
	}
	assert.Equal(t, 1, infos)
	assert.Equal(t, 5, warns)
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, lvl)

	lvl, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = LevelFromString("loud")
	assert.Error(t, err)
}

func TestFromSettings(t *testing.T) {
	cfg, err := FromSettings(config.LoggingConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)

	_, err = FromSettings(config.LoggingConfig{Level: "nope"})
	assert.Error(t, err)
}

func TestTruncated(t *testing.T) {
	f := Truncated("content", "abcdef", 3)
	assert.Equal(t, "abc...(3 more)", f.String)
	assert.Equal(t, "ab", Truncated("content", "ab", 3).String)
}

func TestWithParticipant_DropsInvalidIDs(t *testing.T) {
	ctx := WithParticipant(context.Background(), "bad id with spaces")
	assert.Equal(t, "", ParticipantFromContext(ctx))
}

func TestWithSessionID_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { WithSessionID(context.Background(), "") })
}
