package cpu

import (
	"path/filepath"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
)

// turboControl is the on-disk encoding of the boost switch for one driver
// family. intel_pstate exposes "no_turbo" (1 disables); the others expose
// "boost" (1 enables).
type turboControl struct {
	path     string
	inverted bool
}

func turboControlFor(root string, d Driver) (turboControl, error) {
	switch d.Family {
	case IntelPstate:
		return turboControl{path: filepath.Join(root, "intel_pstate", "no_turbo"), inverted: true}, nil
	case AcpiCpufreq, AmdPstate:
		return turboControl{path: filepath.Join(root, "cpufreq", "boost")}, nil
	default:
		return turboControl{}, errors.New().WithData(errors.ErrUnsupportedDriver, d.String())
	}
}

// encode converts "boost enabled" into the value stored in the file.
func (t turboControl) encode(enabled bool) bool {
	return enabled != t.inverted
}

// decode converts the stored value into "boost enabled".
func (t turboControl) decode(stored bool) bool {
	return stored != t.inverted
}
