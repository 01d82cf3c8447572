package profile

import "codeberg.org/mutker/cpupowerctl/internal/cpu"

// Profile is a named power policy. A nil MaxFreq or Turbo leaves that setting
// untouched when the profile is applied.
type Profile struct {
	Name        string
	Description string
	Governor    string
	MaxFreq     *cpu.Frequency
	Turbo       *bool
}

// Controller is the subset of cpu.Manager a profile is applied through.
type Controller interface {
	CoreCount() int
	SetGovernorAll(name string) error
	HardwareMinFreq(core int) (cpu.Frequency, error)
	SetScalingMinFreq(core int, freq cpu.Frequency) error
	SetScalingMaxFreq(core int, freq cpu.Frequency) error
	SetTurbo(enabled bool) error
}

// Apply steps, in execution order.
const (
	StepGovernor = "governor"
	StepMinFreq  = "min_freq"
	StepMaxFreq  = "max_freq"
	StepTurbo    = "turbo"
)
