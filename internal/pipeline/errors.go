package pipeline

import (
	"fmt"
	"strings"
)

// Stage names the step at which a file failed.
type Stage string

const (
	StageParse Stage = "parse"
	StageWrite Stage = "write"
)

// FileError records a failure confined to one source file.
type FileError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.Path, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// RunError aggregates every per-file failure of a completed run.
type RunError struct {
	Failures []FileError
}

func (e *RunError) Error() string {
	const maxListed = 5

	var b strings.Builder
	fmt.Fprintf(&b, "%d trace files failed", len(e.Failures))
	for i, f := range e.Failures {
		if i == maxListed {
			fmt.Fprintf(&b, "; and %d more", len(e.Failures)-maxListed)
			break
		}
		b.WriteString("; ")
		b.WriteString(f.Error())
	}
	return b.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
