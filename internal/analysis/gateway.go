package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
	"github.com/fyrsmithlabs/steelman/internal/logging"
	"github.com/fyrsmithlabs/steelman/internal/resilience"
)

const (
	instrumentationName = "github.com/fyrsmithlabs/steelman/internal/analysis"

	// auditParamLimit bounds each parameter value in audit entries.
	auditParamLimit = 80
)

// Options configures a Gateway. Zero values select defaults.
type Options struct {
	Limiter    *resilience.RateLimiter
	Retry      resilience.RetryConfig
	Sleep      resilience.SleepFunc
	Prompts    *PromptBuilder
	Generation *GenerationConfig
	// Timeout bounds a single provider attempt. Zero means no bound.
	Timeout time.Duration
	// Redactor, when set, scrubs every prompt parameter before the prompt is built.
	Redactor Redactor
	Logger   *logging.Logger
}

// Redactor removes secrets from text and reports how many it removed.
type Redactor interface {
	RedactString(text string) (string, int)
}

// Gateway sends analysis requests to a Provider through the rate limiter,
// prompt builder, retrier and error orchestrator.
type Gateway struct {
	provider   Provider
	limiter    *resilience.RateLimiter
	retrier    *resilience.Retrier
	prompts    *PromptBuilder
	errors     *ErrorOrchestrator
	generation GenerationConfig
	timeout    time.Duration
	redactor   Redactor
	logger     *logging.Logger

	tracer   trace.Tracer
	requests metric.Int64Counter
	failures metric.Int64Counter
}

// NewGateway creates a gateway around provider.
func NewGateway(provider Provider, opts Options) (*Gateway, error) {
	if provider == nil {
		return nil, errors.New("analysis provider is required")
	}
	logger := logging.OrNop(opts.Logger).Named("analysis")

	g := &Gateway{
		provider:   provider,
		limiter:    opts.Limiter,
		prompts:    opts.Prompts,
		errors:     NewErrorOrchestrator(logger),
		generation: DefaultGenerationConfig(),
		timeout:    opts.Timeout,
		redactor:   opts.Redactor,
		logger:     logger,
		tracer:     otel.Tracer(instrumentationName),
	}
	if g.limiter == nil {
		g.limiter = resilience.NewRateLimiter(resilience.DefaultMaxRequests, resilience.DefaultWindow)
	}
	if g.prompts == nil {
		g.prompts = NewPromptBuilder()
	}
	if opts.Generation != nil {
		g.generation = *opts.Generation
	}

	retryOpts := []resilience.RetrierOption{
		resilience.WithRetryable(g.retryable),
		resilience.WithLogger(logger),
	}
	if opts.Sleep != nil {
		retryOpts = append(retryOpts, resilience.WithSleep(opts.Sleep))
	}
	g.retrier = resilience.NewRetrier(opts.Retry, retryOpts...)

	g.initMetrics()
	return g, nil
}

func (g *Gateway) initMetrics() {
	meter := otel.Meter(instrumentationName)
	var err error

	g.requests, err = meter.Int64Counter(
		"steelman.analysis.requests_total",
		metric.WithDescription("Total number of analysis requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		g.logger.Warn(context.Background(), "failed to create requests counter", zap.Error(err))
	}

	g.failures, err = meter.Int64Counter(
		"steelman.analysis.failures_total",
		metric.WithDescription("Total number of failed analysis requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		g.logger.Warn(context.Background(), "failed to create failures counter", zap.Error(err))
	}
}

// retryable retries only failures the orchestrator maps to a generic
// provider error.
func (g *Gateway) retryable(err error) bool {
	return apperrors.KindOf(g.errors.Classify(err)) == apperrors.KindProvider
}

// Limiter returns the gateway's rate limiter.
func (g *Gateway) Limiter() *resilience.RateLimiter {
	return g.limiter
}

// Prompts returns the gateway's prompt builder.
func (g *Gateway) Prompts() *PromptBuilder {
	return g.prompts
}

// Analyze runs a statement or restatement analysis.
func (g *Gateway) Analyze(ctx context.Context, req Request) (*Result, error) {
	raw, err := g.generate(ctx, "analysis.analyze", req)
	if err != nil {
		return nil, err
	}
	res, err := ParseResult(raw)
	if err != nil {
		g.recordFailure(ctx, req.TemplateID, err)
		g.logger.Warn(ctx, "analysis response rejected",
			zap.String("template", req.TemplateID),
			zap.Error(err),
		)
		return nil, err
	}
	return res, nil
}

// Summarize runs a discussion summary.
func (g *Gateway) Summarize(ctx context.Context, req Request) (*Summary, error) {
	raw, err := g.generate(ctx, "analysis.summarize", req)
	if err != nil {
		return nil, err
	}
	sum, err := ParseSummary(raw)
	if err != nil {
		g.recordFailure(ctx, req.TemplateID, err)
		g.logger.Warn(ctx, "summary response rejected",
			zap.String("template", req.TemplateID),
			zap.Error(err),
		)
		return nil, err
	}
	return sum, nil
}

// generate admits, builds, calls and classifies. The returned error is
// always classified.
func (g *Gateway) generate(ctx context.Context, op string, req Request) (string, error) {
	ctx, span := g.tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(attribute.String("template", req.TemplateID))

	if g.requests != nil {
		g.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("template", req.TemplateID)))
	}

	if !g.limiter.Allow() {
		err := apperrors.RateLimited(op, g.limiter.RemainingTime())
		g.fail(ctx, span, req.TemplateID, err)
		g.logger.Warn(ctx, "analysis request rate limited",
			zap.String("template", req.TemplateID),
			zap.Duration("retry_after", err.RetryAfter),
		)
		return "", err
	}

	params := g.redact(ctx, req)

	prompt, tmpl, err := g.prompts.Build(req.TemplateID, params)
	if err != nil {
		g.fail(ctx, span, req.TemplateID, err)
		return "", err
	}
	cfg := g.generation.forTemplate(tmpl)

	start := time.Now()
	attempts := 0
	raw, err := resilience.Retry(ctx, g.retrier, func(ctx context.Context) (string, error) {
		attempts++
		return g.attempt(ctx, prompt, cfg)
	})
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		classified := g.errors.Handle(ctx, err)
		g.fail(ctx, span, req.TemplateID, classified)
		return "", classified
	}

	g.logger.Info(ctx, "analysis request completed",
		zap.String("template", req.TemplateID),
		auditParams(params),
		zap.Int("attempts", attempts),
		zap.Duration("duration", time.Since(start)),
	)
	return raw, nil
}

// attempt makes one provider call bounded by the per-attempt timeout. An
// attempt that runs out of time while ctx is still live is a transient
// provider failure; ctx's own cancellation is returned untouched.
func (g *Gateway) attempt(ctx context.Context, prompt string, cfg GenerationConfig) (string, error) {
	if g.timeout <= 0 {
		return g.provider.GenerateContent(ctx, prompt, cfg)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.provider.GenerateContent(attemptCtx, prompt, cfg)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return "", &apperrors.Error{
			Kind: apperrors.KindProvider,
			Op:   opProvider,
			Code: "timeout",
			Msg:  fmt.Sprintf("analysis provider did not respond within %s", g.timeout),
			Err:  err,
		}
	}
	return raw, err
}

// redact returns req.Params with secrets removed. The caller's map is never modified.
func (g *Gateway) redact(ctx context.Context, req Request) map[string]string {
	if g.redactor == nil || len(req.Params) == 0 {
		return req.Params
	}
	out := make(map[string]string, len(req.Params))
	total := 0
	for k, v := range req.Params {
		clean, n := g.redactor.RedactString(v)
		out[k] = clean
		total += n
	}
	if total > 0 {
		g.logger.Warn(ctx, "secrets redacted from analysis request",
			zap.String("template", req.TemplateID),
			zap.Int("redactions", total),
		)
	}
	return out
}

func (g *Gateway) fail(ctx context.Context, span trace.Span, templateID string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(apperrors.KindOf(err)))
	g.recordFailure(ctx, templateID, err)
}

func (g *Gateway) recordFailure(ctx context.Context, templateID string, err error) {
	if g.failures == nil {
		return
	}
	g.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("template", templateID),
		attribute.String("kind", string(apperrors.KindOf(err))),
	))
}

// auditParams logs parameters truncated, in key order.
func auditParams(params map[string]string) zap.Field {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, logging.Truncated(k, params[k], auditParamLimit))
	}
	return zap.Dict("params", fields...)
}
