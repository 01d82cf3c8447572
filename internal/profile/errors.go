package profile

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
)

// StepFailure is a failed apply step. Err is a cpu.PartialFailure for the
// per-core steps.
type StepFailure struct {
	Step string
	Err  error
}

// ApplyError lists every step of an apply that failed. Steps not listed took
// effect.
type ApplyError struct {
	Profile  string
	Failures []StepFailure
}

func (e *ApplyError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Step, f.Err))
	}

	return fmt.Sprintf("profile %q: %s", e.Profile, strings.Join(parts, "; "))
}

// Steps returns the failed step names in execution order.
func (e *ApplyError) Steps() []string {
	steps := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		steps = append(steps, f.Step)
	}

	return steps
}

func (e *ApplyError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}

	return errs
}

// AsApplyError extracts the failed steps from err.
func AsApplyError(err error) (*ApplyError, bool) {
	var ae *ApplyError
	if errors.As(err, &ae) {
		return ae, true
	}

	return nil, false
}

// NameData is attached to ErrProfileNotFound and ErrInvalidProfile errors.
type NameData struct {
	Name string
}
