package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/analysis"
	"github.com/fyrsmithlabs/steelman/internal/config"
	"github.com/fyrsmithlabs/steelman/internal/logging"
	"github.com/fyrsmithlabs/steelman/internal/resilience"
	"github.com/fyrsmithlabs/steelman/internal/scrub"
	"github.com/fyrsmithlabs/steelman/internal/session"
	"github.com/fyrsmithlabs/steelman/internal/store"
	"github.com/fyrsmithlabs/steelman/internal/telemetry"
)

// app holds the process-wide collaborators shared by sessions.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	store   store.Store
	gateway *analysis.Gateway
	tel     *telemetry.Telemetry
}

func openApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.offline {
		cfg.Analysis.Provider = "fake"
	}

	logCfg, err := logging.FromSettings(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	// Logs go to stderr so command output on stdout stays parseable.
	logger, err := logging.NewLoggerWithWriter(logCfg, os.Stderr, global.GetLoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry, telemetry.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	provider, err := newProvider(ctx, cfg.Analysis)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "analysis provider configured",
		zap.String("provider", cfg.Analysis.Provider),
		zap.String("model", cfg.Analysis.Model),
		logging.Secret("api_key", cfg.Analysis.APIKey),
	)
	var redactor analysis.Redactor
	if cfg.Analysis.Redact {
		if redactor, err = newScrubber(cfg.Analysis.AllowlistFile); err != nil {
			return nil, err
		}
	}
	prompts, err := newPromptBuilder(cfg.Analysis.TemplatesFile)
	if err != nil {
		return nil, err
	}

	gen := analysis.DefaultGenerationConfig()
	gen.Temperature = cfg.Analysis.Temperature
	gen.TopK = cfg.Analysis.TopK
	gen.TopP = cfg.Analysis.TopP
	gen.MaxOutputTokens = cfg.Analysis.MaxOutputTokens

	gateway, err := analysis.NewGateway(provider, analysis.Options{
		Limiter: resilience.NewRateLimiter(cfg.Analysis.RateLimitMax, cfg.Analysis.RateLimitWindow.Duration()),
		Retry: resilience.RetryConfig{
			MaxAttempts: cfg.Analysis.RetryMaxAttempts,
			BaseDelay:   cfg.Analysis.RetryBaseDelay.Duration(),
			MaxDelay:    cfg.Analysis.RetryMaxDelay.Duration(),
		},
		Prompts:    prompts,
		Generation: &gen,
		Timeout:    cfg.Analysis.Timeout.Duration(),
		Redactor:   redactor,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}

	return &app{cfg: cfg, logger: logger, store: st, gateway: gateway, tel: tel}, nil
}

func newProvider(ctx context.Context, cfg config.AnalysisConfig) (analysis.Provider, error) {
	switch cfg.Provider {
	case "fake":
		return analysis.OfflineProvider{}, nil
	case "gemini":
		p, err := analysis.NewGeminiProvider(ctx, analysis.GeminiConfig{
			APIKey: cfg.APIKey.Value(),
			Model:  cfg.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown analysis provider %q", cfg.Provider)
	}
}

func newScrubber(allowlistPath string) (*scrub.Scrubber, error) {
	allowlist, err := scrub.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load allowlist: %w", err)
	}
	s, err := scrub.New(allowlist)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret scrubber: %w", err)
	}
	return s, nil
}

func newPromptBuilder(path string) (*analysis.PromptBuilder, error) {
	if path == "" {
		return analysis.NewPromptBuilder(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open templates file: %w", err)
	}
	defer f.Close()

	extra, err := analysis.LoadTemplates(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates from %s: %w", path, err)
	}
	return analysis.NewPromptBuilder(extra...), nil
}

// session resumes the session named by id, starting a new one if it has
// no checkpoints.
func (a *app) session(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, errors.New("--session is required")
	}
	return session.Resume(ctx, session.Deps{
		Analyzer:     a.gateway,
		Store:        a.store,
		Discussion:   a.cfg.Discussion,
		SteelManning: a.cfg.SteelManning,
		Logger:       a.logger,
	}, id)
}

func (a *app) Close() error {
	err := a.store.Close()
	if terr := a.tel.Shutdown(context.Background()); terr != nil {
		a.logger.Warn(context.Background(), "telemetry shutdown failed", zap.Error(terr))
	}
	_ = a.logger.Sync()
	return err
}

// withSession opens the app, resumes the session and runs fn.
func withSession(ctx context.Context, opts *rootOptions, fn func(*session.Session) error) error {
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.session(ctx, opts.sessionID)
	if err != nil {
		return err
	}
	return fn(s)
}
