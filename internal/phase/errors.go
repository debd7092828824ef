package phase

import (
	"fmt"

	"github.com/fyrsmithlabs/steelman/internal/apperrors"
)

// MismatchError is returned when completing a phase other than the current
// one, or completing anything after the session finished.
type MismatchError struct {
	Current   Phase
	Attempted Phase
	Finished  bool
}

func (e *MismatchError) Error() string {
	if e.Finished {
		return fmt.Sprintf("phase mismatch: cannot complete %s, session already finished", e.Attempted)
	}
	return fmt.Sprintf("phase mismatch: cannot complete %s while current phase is %s", e.Attempted, e.Current)
}

// Is matches apperrors.ErrPhaseMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == apperrors.ErrPhaseMismatch
}

// Kind places the error in the apperrors taxonomy.
func (e *MismatchError) Kind() apperrors.Kind {
	return apperrors.KindPhaseMismatch
}

// GateError wraps the error of a gate that refused a transition.
type GateError struct {
	Gate  string
	Phase Phase
	Err   error
}

func (e *GateError) Error() string {
	return fmt.Sprintf("gate %s rejected completion of %s: %v", e.Gate, e.Phase, e.Err)
}

// Unwrap returns the gate's error.
func (e *GateError) Unwrap() error {
	return e.Err
}
