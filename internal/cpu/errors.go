package cpu

import (
	"fmt"
	"strings"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
)

// RangeData is attached to ErrOutOfRange errors.
type RangeData struct {
	Value Frequency
	Min   Frequency
	Max   Frequency
}

// GovernorData is attached to ErrUnknownGovernor errors.
type GovernorData struct {
	Name      string
	Available []string
}

// CoreFailure pairs a core with the error it returned.
type CoreFailure struct {
	Core int
	Err  error
}

// PartialFailure lists the cores that failed during a multi-core write.
// Cores not listed were written successfully and keep their new value.
type PartialFailure struct {
	Failures []CoreFailure
}

func (p *PartialFailure) Error() string {
	parts := make([]string, 0, len(p.Failures))
	for _, f := range p.Failures {
		parts = append(parts, fmt.Sprintf("core %d: %v", f.Core, f.Err))
	}

	return fmt.Sprintf("%d core(s) failed: %s", len(p.Failures), strings.Join(parts, "; "))
}

// Cores returns the failed core ids in the order they were attempted.
func (p *PartialFailure) Cores() []int {
	cores := make([]int, 0, len(p.Failures))
	for _, f := range p.Failures {
		cores = append(cores, f.Core)
	}

	return cores
}

func (p *PartialFailure) Unwrap() []error {
	errs := make([]error, 0, len(p.Failures))
	for _, f := range p.Failures {
		errs = append(errs, f.Err)
	}

	return errs
}

func partialFailure(failures []CoreFailure) error {
	if len(failures) == 0 {
		return nil
	}

	return errors.New().Wrap(errors.ErrPartialFailure, &PartialFailure{Failures: failures})
}

// AsPartialFailure extracts the per-core failures from err.
func AsPartialFailure(err error) (*PartialFailure, bool) {
	var pf *PartialFailure
	if errors.As(err, &pf) {
		return pf, true
	}

	return nil, false
}
