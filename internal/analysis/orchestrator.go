package analysis

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
	"github.com/fyrsmithlabs/steelman/internal/logging"
)

const opProvider = "analysis.provider"

// Handler classifies one family of provider failures.
type Handler struct {
	Name  string
	Match func(error) bool
	Map   func(error) error
}

// ErrorOrchestrator runs an ordered list of handlers over a provider
// failure. The first match wins; unmatched errors become generic provider
// errors.
type ErrorOrchestrator struct {
	handlers []Handler
	logger   *logging.Logger
}

// NewErrorOrchestrator creates an orchestrator. With no handlers given,
// DefaultHandlers are used.
func NewErrorOrchestrator(logger *logging.Logger, handlers ...Handler) *ErrorOrchestrator {
	if len(handlers) == 0 {
		handlers = DefaultHandlers()
	}
	return &ErrorOrchestrator{
		handlers: handlers,
		logger:   logging.OrNop(logger),
	}
}

// DefaultHandlers returns the built-in handler chain.
func DefaultHandlers() []Handler {
	return []Handler{
		{
			Name:  "passthrough",
			Match: isAlreadyClassified,
			Map:   func(err error) error { return err },
		},
		{
			Name:  "content_policy",
			Match: isContentPolicyViolation,
			Map: func(err error) error {
				return &apperrors.Error{
					Kind: apperrors.KindContentPolicy,
					Op:   opProvider,
					Code: "content_policy",
					Msg:  "content policy violation",
					Err:  err,
				}
			},
		},
		{
			Name:  "permission",
			Match: isPermissionDenied,
			Map: func(err error) error {
				return &apperrors.Error{
					Kind: apperrors.KindPermission,
					Op:   opProvider,
					Code: "permission_denied",
					Msg:  "API permission denied",
					Err:  err,
				}
			},
		},
		{
			Name:  "rate_limit",
			Match: isProviderRateLimit,
			Map: func(err error) error {
				e := apperrors.RateLimited(opProvider, providerRetryDelay(err))
				e.Err = err
				return e
			},
		},
	}
}

// Classify maps err into the apperrors taxonomy without side effects.
// A nil error stays nil.
func (o *ErrorOrchestrator) Classify(err error) error {
	_, classified := o.classify(err)
	return classified
}

// Handle classifies err and logs the original failure once.
func (o *ErrorOrchestrator) Handle(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	handler, classified := o.classify(err)
	o.logger.Error(ctx, "analysis provider call failed",
		zap.String("handler", handler),
		zap.String("kind", string(apperrors.KindOf(classified))),
		zap.Error(err),
	)
	return classified
}

func (o *ErrorOrchestrator) classify(err error) (string, error) {
	if err == nil {
		return "", nil
	}
	for _, h := range o.handlers {
		if h.Match(err) {
			return h.Name, h.Map(err)
		}
	}
	return "default", &apperrors.Error{
		Kind: apperrors.KindProvider,
		Op:   opProvider,
		Msg:  "analysis provider error",
		Err:  err,
	}
}

// isAlreadyClassified matches errors that already carry a kind, plus
// context cancellation which callers inspect directly.
func isAlreadyClassified(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return apperrors.KindOf(err) != ""
}

func isContentPolicyViolation(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.blockedByHarmThreshold()
}

func isPermissionDenied(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) && (pe.Status == 403 || pe.Code == statusPermissionDenied) {
		return true
	}
	return strings.Contains(err.Error(), permissionDeniedMessageText)
}

func isProviderRateLimit(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && (pe.Status == 429 || pe.Code == statusResourceExhausted)
}

// providerRetryDelay reads the retryDelay hint the provider attaches to
// quota errors, e.g. "17s".
func providerRetryDelay(err error) time.Duration {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return 0
	}
	d, parseErr := time.ParseDuration(pe.metadata("retryDelay"))
	if parseErr != nil || d < 0 {
		return 0
	}
	return d
}
