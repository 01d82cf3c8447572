// Package profile holds named power policies and applies them to every core.
package profile

import (
	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
)

const (
	PowerSaver  = "power-saver"
	Balanced    = "balanced"
	Performance = "performance"
	MaximumName = "maximum"
)

// Builtins returns the built-in profiles in registry order.
func Builtins() []Profile {
	return []Profile{
		{
			Name:        PowerSaver,
			Description: "Lowest power draw, boost disabled",
			Governor:    "powersave",
			Turbo:       boolPtr(false),
		},
		{
			Name:        Balanced,
			Description: "Load-following scaling with boost",
			Governor:    "schedutil",
			Turbo:       boolPtr(true),
		},
		{
			Name:        Performance,
			Description: "Highest sustained frequency with boost",
			Governor:    "performance",
			Turbo:       boolPtr(true),
		},
	}
}

// Maximum builds a profile that runs every core at its hardware maximum.
func Maximum(info cpu.Info) Profile {
	maxFreq := info.MaxFreq

	return Profile{
		Name:        MaximumName,
		Description: "Performance governor capped at the hardware maximum",
		Governor:    "performance",
		MaxFreq:     &maxFreq,
		Turbo:       boolPtr(true),
	}
}

// Validate checks that p can be applied.
func Validate(p Profile) error {
	switch {
	case p.Name == "":
		return errors.New().WithMessage(errors.ErrInvalidProfile, "profile name is empty")
	case p.Governor == "":
		return errors.New().WithData(errors.ErrInvalidProfile, NameData{Name: p.Name}).
			WithMessage("profile has no governor")
	case p.MaxFreq != nil && *p.MaxFreq == 0:
		return errors.New().WithData(errors.ErrInvalidProfile, NameData{Name: p.Name}).
			WithMessage("profile max_freq must be positive")
	}

	return nil
}

// Manager is the profile registry. It is not safe for concurrent use.
type Manager struct {
	profiles []Profile
	logger   logger.Logger
}

// NewManager builds the registry from the built-ins and custom. A custom
// profile named like a built-in replaces it in place; other names are
// appended in order. A later custom profile overrides an earlier one of the
// same name.
func NewManager(log logger.Logger, custom ...Profile) (*Manager, error) {
	m := &Manager{
		profiles: Builtins(),
		logger:   log,
	}

	for _, p := range custom {
		if err := Validate(p); err != nil {
			return nil, err
		}

		if i := m.index(p.Name); i >= 0 {
			m.profiles[i] = p
			m.logger.Debug().Str("profile", p.Name).Msg("Profile overridden")
			continue
		}

		m.profiles = append(m.profiles, p)
	}

	return m, nil
}

// Profiles returns a copy of the registry.
func (m *Manager) Profiles() []Profile {
	out := make([]Profile, len(m.profiles))
	copy(out, m.profiles)

	return out
}

// Get looks a profile up by name.
func (m *Manager) Get(name string) (Profile, error) {
	i := m.index(name)
	if i < 0 {
		return Profile{}, errors.New().WithData(errors.ErrProfileNotFound, NameData{Name: name})
	}

	return m.profiles[i], nil
}

// Apply sets the governor, then the frequency cap, then turbo. Every step is
// attempted regardless of earlier failures and nothing is rolled back. The
// returned error wraps an *ApplyError naming each failed step.
func (m *Manager) Apply(p Profile, c Controller) error {
	if err := Validate(p); err != nil {
		return err
	}

	var failures []StepFailure
	fail := func(step string, err error) {
		failures = append(failures, StepFailure{Step: step, Err: err})
	}

	if err := c.SetGovernorAll(p.Governor); err != nil {
		fail(StepGovernor, err)
	}

	if p.MaxFreq != nil {
		if err := resetMinFreq(c); err != nil {
			fail(StepMinFreq, err)
		}
		if err := setMaxFreq(c, *p.MaxFreq); err != nil {
			fail(StepMaxFreq, err)
		}
	}

	if p.Turbo != nil {
		if err := c.SetTurbo(*p.Turbo); err != nil {
			fail(StepTurbo, err)
		}
	}

	if len(failures) > 0 {
		ae := &ApplyError{Profile: p.Name, Failures: failures}
		m.logger.Warn().Str("profile", p.Name).Strs("failed_steps", ae.Steps()).Msg("Profile partially applied")

		return errors.New().Wrap(errors.ErrApplyProfile, ae)
	}

	m.logger.Info().Str("profile", p.Name).Msg("Profile applied")

	return nil
}

func (m *Manager) index(name string) int {
	for i, p := range m.profiles {
		if p.Name == name {
			return i
		}
	}

	return -1
}

// resetMinFreq lowers every core's min bound to its hardware minimum so a
// following max write below the current min stays valid.
func resetMinFreq(c Controller) error {
	return eachCore(c, func(core int) error {
		hwMin, err := c.HardwareMinFreq(core)
		if err != nil {
			return err
		}

		return c.SetScalingMinFreq(core, hwMin)
	})
}

func setMaxFreq(c Controller, freq cpu.Frequency) error {
	return eachCore(c, func(core int) error {
		return c.SetScalingMaxFreq(core, freq)
	})
}

func eachCore(c Controller, fn func(core int) error) error {
	var failures []cpu.CoreFailure
	for core := 0; core < c.CoreCount(); core++ {
		if err := fn(core); err != nil {
			failures = append(failures, cpu.CoreFailure{Core: core, Err: err})
		}
	}

	if len(failures) == 0 {
		return nil
	}

	return errors.New().Wrap(errors.ErrPartialFailure, &cpu.PartialFailure{Failures: failures})
}

func boolPtr(b bool) *bool {
	return &b
}
