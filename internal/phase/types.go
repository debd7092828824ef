package phase

import (
	"context"
	"fmt"
)

// Phase is one step of a discussion.
type Phase string

const (
	IssueProposal Phase = "ISSUE_PROPOSAL"
	SteelManning  Phase = "STEEL_MANNING"
	Discussion    Phase = "DISCUSSION"
	Summary       Phase = "SUMMARY"
)

var order = []Phase{IssueProposal, SteelManning, Discussion, Summary}

// All returns all phases in execution order.
func All() []Phase {
	return append([]Phase(nil), order...)
}

// Index returns the position of p in All, or -1.
func (p Phase) Index() int {
	for i, q := range order {
		if q == p {
			return i
		}
	}
	return -1
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p.Index() >= 0
}

// Next returns the phase after p. Summary is its own successor.
func (p Phase) Next() Phase {
	i := p.Index()
	if i < 0 || i == len(order)-1 {
		return p
	}
	return order[i+1]
}

// Terminal reports whether p is the last phase.
func (p Phase) Terminal() bool {
	return p == Summary
}

func (p Phase) String() string {
	return string(p)
}

// ParsePhase converts s to a Phase.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown phase %q", s)
	}
	return p, nil
}

// Gate checks the payload offered when completing a phase.
type Gate interface {
	// Name returns the gate identifier.
	Name() string

	// Check returns an error when the phase must not complete.
	Check(ctx context.Context, data any) error
}

type gateFunc struct {
	name string
	fn   func(ctx context.Context, data any) error
}

func (g gateFunc) Name() string                              { return g.name }
func (g gateFunc) Check(ctx context.Context, data any) error { return g.fn(ctx, data) }

// NewGate adapts a function to Gate.
func NewGate(name string, fn func(ctx context.Context, data any) error) Gate {
	return gateFunc{name: name, fn: fn}
}

// Checkpointer persists the payload of each completed phase.
type Checkpointer interface {
	SaveCheckpoint(ctx context.Context, p Phase, data any) error
}

// Snapshot is a copy of the manager's state. Maps are cloned; payload
// values are shared and must be treated as read-only.
type Snapshot struct {
	Current   Phase
	Completed map[Phase]bool
	Data      map[Phase]any
	Finished  bool
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Completed = make(map[Phase]bool, len(s.Completed))
	for k, v := range s.Completed {
		out.Completed[k] = v
	}
	out.Data = make(map[Phase]any, len(s.Data))
	for k, v := range s.Data {
		out.Data[k] = v
	}
	return out
}

// IsComplete reports whether p was completed.
func (s Snapshot) IsComplete(p Phase) bool {
	return s.Completed[p]
}

// Percentage returns completed phases as a share of all phases, 0-100.
func (s Snapshot) Percentage() int {
	n := 0
	for _, p := range order {
		if s.Completed[p] {
			n++
		}
	}
	return n * 100 / len(order)
}
