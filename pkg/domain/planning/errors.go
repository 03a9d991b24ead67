package planning

import (
	"errors"
	"fmt"
)

var (
	ErrNoGoal             = errors.New("no goal has been set")
	ErrNoCurrentTask      = errors.New("plan has no current task")
	ErrInvalidTransition  = errors.New("invalid lifecycle transition")
	ErrDecompositionParse = errors.New("could not parse decomposition response")
)

// DecompositionError is returned when a model response cannot be turned
// into tasks. Raw keeps the full response for diagnostics.
type DecompositionError struct {
	Raw    string
	Reason string
	Err    error
}

func (e *DecompositionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decomposition failed: %s: %v", e.Reason, e.Err)
	}
	return "decomposition failed: " + e.Reason
}

func (e *DecompositionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDecompositionParse}
	}
	return []error{ErrDecompositionParse, e.Err}
}

// ReviewParseError is returned when a review response matches no verdict.
type ReviewParseError struct {
	Raw string
}

func (e *ReviewParseError) Error() string {
	return fmt.Sprintf("unrecognised review verdict: %q", truncate(e.Raw, 120))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
