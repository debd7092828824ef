// Package progress persists phase checkpoints and in-progress drafts so a
// session can be resumed after an interruption.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
	"github.com/fyrsmithlabs/steelman/internal/logging"
	"github.com/fyrsmithlabs/steelman/internal/phase"
	"github.com/fyrsmithlabs/steelman/internal/store"
)

const instrumentationName = "github.com/fyrsmithlabs/steelman/internal/progress"

const (
	checkpointPrefix = "checkpoint_"
	draftPrefix      = "draft_"
	lastPhaseKey     = "last_phase"
)

// Checkpoint is the persisted record of a completed phase.
type Checkpoint struct {
	Phase   phase.Phase     `json:"phase"`
	Data    json.RawMessage `json:"data,omitempty"`
	SavedAt time.Time       `json:"saved_at"`
}

// Decode unmarshals the checkpoint payload into v. An empty payload leaves
// v untouched.
func (c *Checkpoint) Decode(v any) error {
	if len(c.Data) == 0 || string(c.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(c.Data, v); err != nil {
		return fmt.Errorf("decode %s checkpoint: %w", c.Phase, err)
	}
	return nil
}

// Tracker reads and writes checkpoints in a key-value store. It implements
// phase.Checkpointer.
type Tracker struct {
	store  store.Store
	now    func() time.Time
	logger *logging.Logger

	tracer trace.Tracer
	saves  metric.Int64Counter
	errs   metric.Int64Counter
}

var _ phase.Checkpointer = (*Tracker)(nil)

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock sets the time source used for SavedAt.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the tracker's logger.
func WithLogger(l *logging.Logger) Option {
	return func(t *Tracker) {
		t.logger = l
	}
}

// NewTracker creates a tracker over s. Keys are written as given, so callers
// namespace per session with store.WithPrefix.
func NewTracker(s store.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  s,
		now:    time.Now,
		tracer: otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.OrNop(t.logger).Named("progress")
	t.initMetrics()
	return t
}

func (t *Tracker) initMetrics() {
	meter := otel.Meter(instrumentationName)
	var err error

	t.saves, err = meter.Int64Counter(
		"steelman.progress.checkpoints_total",
		metric.WithDescription("Total number of checkpoints saved"),
		metric.WithUnit("{checkpoint}"),
	)
	if err != nil {
		t.logger.Warn(context.Background(), "failed to create checkpoints counter", zap.Error(err))
	}

	t.errs, err = meter.Int64Counter(
		"steelman.progress.errors_total",
		metric.WithDescription("Total number of failed progress store operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		t.logger.Warn(context.Background(), "failed to create errors counter", zap.Error(err))
	}
}

func checkpointKey(p phase.Phase) string { return checkpointPrefix + string(p) }
func draftKey(p phase.Phase) string      { return draftPrefix + string(p) }

// SaveCheckpoint records that p completed with data, then marks p as the
// most recent phase.
func (t *Tracker) SaveCheckpoint(ctx context.Context, p phase.Phase, data any) (err error) {
	ctx, span := t.tracer.Start(ctx, "progress.SaveCheckpoint",
		trace.WithAttributes(attribute.String("phase", string(p))))
	defer func() { t.finish(ctx, span, "save", err) }()

	if !p.Valid() {
		return apperrors.New(apperrors.KindState, "progress.save", fmt.Sprintf("unknown phase %q", p))
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return apperrors.Wrap(apperrors.KindState, "progress.save", fmt.Errorf("encode %s payload: %w", p, err))
	}
	cp := Checkpoint{Phase: p, SavedAt: t.now().UTC()}
	if data != nil {
		cp.Data = raw
	}
	record, err := json.Marshal(cp)
	if err != nil {
		return apperrors.Wrap(apperrors.KindState, "progress.save", err)
	}

	if err := t.store.Save(ctx, checkpointKey(p), record); err != nil {
		return apperrors.Wrap(apperrors.KindState, "progress.save", err)
	}
	if err := t.store.Save(ctx, lastPhaseKey, []byte(p)); err != nil {
		return apperrors.Wrap(apperrors.KindState, "progress.save", err)
	}

	if t.saves != nil {
		t.saves.Add(ctx, 1, metric.WithAttributes(attribute.String("phase", string(p))))
	}
	t.logger.Debug(ctx, "checkpoint saved", zap.String("phase", string(p)), zap.Int("bytes", len(record)))
	return nil
}

// LoadCheckpoint returns the checkpoint for p, or nil if none was saved.
func (t *Tracker) LoadCheckpoint(ctx context.Context, p phase.Phase) (_ *Checkpoint, err error) {
	ctx, span := t.tracer.Start(ctx, "progress.LoadCheckpoint",
		trace.WithAttributes(attribute.String("phase", string(p))))
	defer func() { t.finish(ctx, span, "load", err) }()

	raw, err := t.store.Load(ctx, checkpointKey(p))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindState, "progress.load", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, apperrors.Wrap(apperrors.KindState, "progress.load", fmt.Errorf("decode %s checkpoint: %w", p, err))
	}
	return &cp, nil
}

// LastPhase returns the most recently checkpointed phase. ok is false when
// nothing has been saved.
func (t *Tracker) LastPhase(ctx context.Context) (_ phase.Phase, ok bool, err error) {
	raw, err := t.store.Load(ctx, lastPhaseKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		t.countError(ctx, "last_phase")
		return "", false, apperrors.Wrap(apperrors.KindState, "progress.last_phase", err)
	}
	p, err := phase.ParsePhase(string(raw))
	if err != nil {
		t.countError(ctx, "last_phase")
		return "", false, apperrors.Wrap(apperrors.KindState, "progress.last_phase", err)
	}
	return p, true, nil
}

// Completed returns the checkpoints of every phase up to and including the
// last saved one, in phase order. It stops at the first gap.
func (t *Tracker) Completed(ctx context.Context) ([]*Checkpoint, error) {
	last, ok, err := t.LastPhase(ctx)
	if err != nil || !ok {
		return nil, err
	}
	var out []*Checkpoint
	for _, p := range phase.All() {
		if p.Index() > last.Index() {
			break
		}
		cp, err := t.LoadCheckpoint(ctx, p)
		if err != nil {
			return nil, err
		}
		if cp == nil {
			t.logger.Warn(ctx, "checkpoint missing, resuming from earlier phase",
				zap.String("phase", string(p)),
				zap.String("last_phase", string(last)),
			)
			break
		}
		out = append(out, cp)
	}
	return out, nil
}

// SaveDraft persists in-progress work for p.
func (t *Tracker) SaveDraft(ctx context.Context, p phase.Phase, draft any) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return apperrors.Wrap(apperrors.KindState, "progress.save_draft", err)
	}
	if err := t.store.Save(ctx, draftKey(p), raw); err != nil {
		t.countError(ctx, "save_draft")
		return apperrors.Wrap(apperrors.KindState, "progress.save_draft", err)
	}
	return nil
}

// LoadDraft decodes the draft for p into v. found is false when no draft
// exists.
func (t *Tracker) LoadDraft(ctx context.Context, p phase.Phase, v any) (found bool, err error) {
	raw, err := t.store.Load(ctx, draftKey(p))
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		t.countError(ctx, "load_draft")
		return false, apperrors.Wrap(apperrors.KindState, "progress.load_draft", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, apperrors.Wrap(apperrors.KindState, "progress.load_draft", err)
	}
	return true, nil
}

// DeleteDraft removes the draft for p. A missing draft is not an error.
func (t *Tracker) DeleteDraft(ctx context.Context, p phase.Phase) error {
	if err := t.store.Delete(ctx, draftKey(p)); err != nil && !errors.Is(err, store.ErrNotFound) {
		t.countError(ctx, "delete_draft")
		return apperrors.Wrap(apperrors.KindState, "progress.delete_draft", err)
	}
	return nil
}

// Clear removes every checkpoint and draft along with the last-phase marker.
func (t *Tracker) Clear(ctx context.Context) error {
	keys := []string{lastPhaseKey}
	for _, p := range phase.All() {
		keys = append(keys, checkpointKey(p), draftKey(p))
	}
	var errs []error
	for _, k := range keys {
		if err := t.store.Delete(ctx, k); err != nil && !errors.Is(err, store.ErrNotFound) {
			errs = append(errs, fmt.Errorf("delete %s: %w", k, err))
		}
	}
	if len(errs) > 0 {
		t.countError(ctx, "clear")
		return apperrors.Wrap(apperrors.KindState, "progress.clear", errors.Join(errs...))
	}
	t.logger.Info(ctx, "progress cleared")
	return nil
}

func (t *Tracker) finish(ctx context.Context, span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.countError(ctx, op)
	}
	span.End()
}

func (t *Tracker) countError(ctx context.Context, op string) {
	if t.errs != nil {
		t.errs.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
	}
}
