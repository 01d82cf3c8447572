package cpu

import (
	"path/filepath"
	"strings"

	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/sysfs"
)

const scalingDriverFile = "scaling_driver"

var driverPatterns = []struct {
	substr string
	family DriverFamily
}{
	{"intel_pstate", IntelPstate},
	{"intel_cpufreq", IntelPstate}, // intel_pstate in passive mode
	{"acpi-cpufreq", AcpiCpufreq},
	{"acpi_cpufreq", AcpiCpufreq},
	{"amd-pstate", AmdPstate},
	{"amd_pstate", AmdPstate},
}

// ClassifyDriver maps a scaling-driver identifier to its family.
func ClassifyDriver(raw string) Driver {
	for _, p := range driverPatterns {
		if strings.Contains(raw, p.substr) {
			return Driver{Family: p.family, Raw: raw}
		}
	}

	return Driver{Family: Unknown, Raw: raw}
}

// DetectDriver reads and classifies the scaling driver of core. A driver
// that cannot be read is reported as Unknown with an empty identifier.
func DetectDriver(fs *sysfs.FS, core Core, log logger.Logger) Driver {
	raw, err := fs.ReadString(filepath.Join(core.Path, scalingDriverFile))
	if err != nil {
		log.Warn().Err(err).Int("cpu", core.Number).Msg("Failed to read scaling driver")
		return Driver{Family: Unknown}
	}

	return ClassifyDriver(raw)
}
