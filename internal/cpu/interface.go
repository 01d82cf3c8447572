package cpu

import "fmt"

// Frequency is a core frequency in MHz.
type Frequency uint

// DriverFamily is the closed set of scaling-driver conventions the manager
// knows how to drive.
type DriverFamily int

const (
	Unknown DriverFamily = iota
	IntelPstate
	AcpiCpufreq
	AmdPstate
)

func (f DriverFamily) String() string {
	switch f {
	case IntelPstate:
		return "intel_pstate"
	case AcpiCpufreq:
		return "acpi-cpufreq"
	case AmdPstate:
		return "amd-pstate"
	default:
		return "unknown"
	}
}

// Driver is the detected scaling driver. Raw keeps the identifier exactly as
// the kernel reported it.
type Driver struct {
	Family DriverFamily
	Raw    string
}

func (d Driver) String() string {
	if d.Family == Unknown {
		if d.Raw == "" {
			return "unknown"
		}
		return fmt.Sprintf("unknown (%s)", d.Raw)
	}

	return d.Raw
}

// Info describes the processor. MinFreq and MaxFreq are hardware limits of
// core 0, not current settings.
type Info struct {
	Model     string
	CoreCount int
	Driver    Driver
	MinFreq   Frequency
	MaxFreq   Frequency
}

// CoreStatus is a point-in-time reading of one core.
type CoreStatus struct {
	CoreID      int
	CurrentFreq Frequency
	Governor    string
}

// ModelSource resolves the processor model string.
type ModelSource interface {
	Model() (string, error)
}
