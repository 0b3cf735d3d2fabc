package etl

import (
	"fmt"
	"io"
)

// State tracks the driver through its run.
type State int

const (
	StateInit State = iota
	StateExtracting
	StateTransforming
	StateLoading
	StateDone
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateExtracting:
		return "EXTRACTING"
	case StateTransforming:
		return "TRANSFORMING"
	case StateLoading:
		return "LOADING"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	case StateCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// Terminal reports whether the state ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// RunResult is the terminal summary of one pipeline execution. It is
// produced exactly once per run and owned by the driver until reported.
type RunResult struct {
	State       State
	Extracted   int
	Transformed int
	Loaded      int
	Errors      []error
}

func (r *RunResult) addError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// Summary writes a human-readable outcome: counts plus the first maxErrors
// errors encountered.
func (r *RunResult) Summary(w io.Writer, maxErrors int) {
	fmt.Fprintf(w, "pipeline %s: extracted=%d transformed=%d loaded=%d errors=%d\n",
		r.State, r.Extracted, r.Transformed, r.Loaded, len(r.Errors))
	for i, err := range r.Errors {
		if i >= maxErrors {
			fmt.Fprintf(w, "  ... and %d more\n", len(r.Errors)-maxErrors)
			break
		}
		fmt.Fprintf(w, "  %d: %v\n", i+1, err)
	}
}
