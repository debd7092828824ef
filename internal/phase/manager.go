package phase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/steelman/internal/logging"
)

// Manager owns the phase state of one session.
type Manager struct {
	// transition serializes Complete, Restore and RegisterGate.
	transition sync.Mutex

	mu        sync.RWMutex
	current   Phase
	completed map[Phase]bool
	data      map[Phase]any
	gates     map[Phase][]Gate

	subsMu sync.Mutex
	subs   []*subscription
	nextID int

	checkpointer Checkpointer
	logger       *logging.Logger
}

type subscription struct {
	id int
	fn func(Snapshot)
}

// Option configures a Manager.
type Option func(*Manager)

// WithCheckpointer persists each completed phase through c.
func WithCheckpointer(c Checkpointer) Option {
	return func(m *Manager) {
		m.checkpointer = c
	}
}

// WithLogger sets the manager's logger.
func WithLogger(l *logging.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// NewManager creates a manager positioned at IssueProposal.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		current:   IssueProposal,
		completed: make(map[Phase]bool, len(order)),
		data:      make(map[Phase]any, len(order)),
		gates:     make(map[Phase][]Gate),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger).Named("phase")
	return m
}

// RegisterGate adds a gate checked before p can complete. Gates run in
// registration order.
func (m *Manager) RegisterGate(p Phase, g Gate) {
	m.transition.Lock()
	defer m.transition.Unlock()
	m.gates[p] = append(m.gates[p], g)
}

// Current returns the current phase.
func (m *Manager) Current() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsComplete reports whether p has been completed.
func (m *Manager) IsComplete(p Phase) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.completed[p]
}

// IsFinished reports whether the terminal phase has been completed.
func (m *Manager) IsFinished() bool {
	return m.IsComplete(Summary)
}

// Data returns the payload recorded when p completed.
func (m *Manager) Data(p Phase) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[p]
	return v, ok
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		Current:   m.current,
		Completed: make(map[Phase]bool, len(m.completed)),
		Data:      make(map[Phase]any, len(m.data)),
		Finished:  m.completed[Summary],
	}
	for k, v := range m.completed {
		s.Completed[k] = v
	}
	for k, v := range m.data {
		s.Data[k] = v
	}
	return s
}

// Complete completes phase p with data.
//
// p must be the current phase and the session must not be finished,
// otherwise a *MismatchError is returned. Every gate registered for p must
// pass, otherwise a *GateError is returned. In both cases state is
// unchanged. A nil data records no payload.
//
// On success the next phase becomes current, a checkpoint is saved (a save
// failure is logged, not returned) and subscribers are notified in
// subscription order before Complete returns.
func (m *Manager) Complete(ctx context.Context, p Phase, data any) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	m.mu.RLock()
	current, finished := m.current, m.completed[Summary]
	m.mu.RUnlock()

	if p != current || finished {
		err := &MismatchError{Current: current, Attempted: p, Finished: finished}
		m.logger.Warn(ctx, "phase completion rejected",
			zap.String("attempted", string(p)),
			zap.String("current", string(current)),
			zap.Bool("finished", finished),
		)
		return err
	}

	for _, g := range m.gates[p] {
		if err := g.Check(ctx, data); err != nil {
			m.logger.Info(ctx, "phase gate rejected completion",
				zap.String("phase", string(p)),
				zap.String("gate", g.Name()),
				zap.Error(err),
			)
			return &GateError{Gate: g.Name(), Phase: p, Err: err}
		}
	}

	m.mu.Lock()
	m.completed[p] = true
	if data != nil {
		m.data[p] = data
	}
	m.current = p.Next()
	snap := m.snapshotLocked()
	m.mu.Unlock()

	m.logger.Info(ctx, "phase completed",
		zap.String("phase", string(p)),
		zap.String("next", string(snap.Current)),
		zap.Int("percentage", snap.Percentage()),
	)

	if m.checkpointer != nil {
		if err := m.checkpointer.SaveCheckpoint(ctx, p, data); err != nil {
			m.logger.Warn(ctx, "checkpoint save failed",
				zap.String("phase", string(p)),
				zap.Error(err),
			)
		}
	}

	m.notify(ctx, snap)
	return nil
}

// Restore marks completed as done and records data, as when resuming from
// checkpoints. It is valid only before any phase has completed, and
// completed must be a prefix of All in order. Subscribers are not notified
// and nothing is checkpointed.
func (m *Manager) Restore(completed []Phase, data map[Phase]any) error {
	m.transition.Lock()
	defer m.transition.Unlock()

	if len(completed) > len(order) {
		return fmt.Errorf("restore: %d phases given, only %d exist", len(completed), len(order))
	}
	for i, p := range completed {
		if p != order[i] {
			return fmt.Errorf("restore: phase %d is %s, want %s", i, p, order[i])
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.completed) > 0 {
		return errors.New("restore: manager already has completed phases")
	}
	for _, p := range completed {
		m.completed[p] = true
		if v, ok := data[p]; ok && v != nil {
			m.data[p] = v
		}
	}
	if n := len(completed); n > 0 {
		m.current = completed[n-1].Next()
	}
	return nil
}

// Subscribe registers fn to receive a snapshot after every transition.
// Callbacks run synchronously inside Complete and must not call Complete.
// The returned function removes the subscription; calling it more than
// once is harmless.
func (m *Manager) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	m.subsMu.Lock()
	m.nextID++
	id := m.nextID
	m.subs = append(m.subs, &subscription{id: id, fn: fn})
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			defer m.subsMu.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (m *Manager) notify(ctx context.Context, snap Snapshot) {
	m.subsMu.Lock()
	subs := make([]*subscription, len(m.subs))
	copy(subs, m.subs)
	m.subsMu.Unlock()

	for _, s := range subs {
		m.deliver(ctx, s, snap)
	}
}

// deliver isolates subscribers from each other: a panicking callback is
// logged and the remaining subscribers still run.
func (m *Manager) deliver(ctx context.Context, s *subscription, snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, "phase subscriber panicked",
				zap.Int("subscription", s.id),
				zap.Any("panic", r),
			)
		}
	}()
	s.fn(snap.clone())
}
