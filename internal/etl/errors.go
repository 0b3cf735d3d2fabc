package etl

import (
	"errors"
	"fmt"
)

// ErrEndOfSource is returned by an Extractor once the source is exhausted.
// It marks normal termination, not a fault.
var ErrEndOfSource = errors.New("end of source")

// ExtractionError reports an unreachable or malformed source. Partial reads
// before the failure are discarded by the driver.
type ExtractionError struct {
	Source string
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction from %s failed: %v", e.Source, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// TransformationError is attributed to a single record and a named step.
// Whether it aborts the run depends on the configured error policy.
type TransformationError struct {
	Step   string
	Record int
	Err    error
}

func (e *TransformationError) Error() string {
	return fmt.Sprintf("step %q failed on record #%d: %v", e.Step, e.Record, e.Err)
}

func (e *TransformationError) Unwrap() error { return e.Err }

// LoadError reports sink unavailability or a rejected write, including
// write timeouts.
type LoadError struct {
	Sink string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load to %s failed: %v", e.Sink, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ErrorPolicy controls how the driver reacts to a per-record
// transformation failure.
type ErrorPolicy int

const (
	// PolicyFail aborts the run on the first transformation error.
	PolicyFail ErrorPolicy = iota
	// PolicySkip drops the offending record, records the error, and
	// continues.
	PolicySkip
)

func (p ErrorPolicy) String() string {
	if p == PolicySkip {
		return "skip"
	}
	return "fail"
}

// ParsePolicy parses the ON_ERROR setting.
func ParsePolicy(s string) (ErrorPolicy, error) {
	switch s {
	case "fail":
		return PolicyFail, nil
	case "skip":
		return PolicySkip, nil
	}
	return PolicyFail, fmt.Errorf("invalid error policy %q (want \"fail\" or \"skip\")", s)
}
