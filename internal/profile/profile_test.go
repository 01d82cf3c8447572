package profile_test

import (
	"fmt"
	"testing"

	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/profile"
	"codeberg.org/mutker/cpupowerctl/internal/sysfs/sysfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freq(f cpu.Frequency) *cpu.Frequency { return &f }
func flag(b bool) *bool                   { return &b }

func newCPU(t *testing.T, fake *sysfstest.FS) *cpu.Manager {
	t.Helper()

	m, err := cpu.New(logger.Nop(),
		cpu.WithFS(fake),
		cpu.WithRoot(sysfstest.CPURoot),
		cpu.WithModelSource(cpu.StaticModel("Test CPU")),
	)
	require.NoError(t, err)

	return m
}

func fourCores() *sysfstest.FS {
	fake := sysfstest.New()
	fake.AddCores(4, sysfstest.DefaultCore())
	fake.SetFile(sysfstest.NoTurboPath, "1")

	return fake
}

func newManager(t *testing.T, custom ...profile.Profile) *profile.Manager {
	t.Helper()

	m, err := profile.NewManager(logger.Nop(), custom...)
	require.NoError(t, err)

	return m
}

func names(ps []profile.Profile) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}

	return out
}

func TestBuiltins(t *testing.T) {
	m := newManager(t)

	assert.Equal(t, []string{"power-saver", "balanced", "performance"}, names(m.Profiles()))

	p, err := m.Get("power-saver")
	require.NoError(t, err)
	assert.Equal(t, "powersave", p.Governor)
	require.NotNil(t, p.Turbo)
	assert.False(t, *p.Turbo)
	assert.Nil(t, p.MaxFreq)
}

func TestCustomProfiles(t *testing.T) {
	m := newManager(t,
		profile.Profile{Name: "quiet", Governor: "powersave", MaxFreq: freq(2000)},
		profile.Profile{Name: "balanced", Governor: "powersave"},
		profile.Profile{Name: "render", Governor: "performance"},
	)

	assert.Equal(t, []string{"power-saver", "balanced", "performance", "quiet", "render"}, names(m.Profiles()))

	p, err := m.Get("balanced")
	require.NoError(t, err)
	assert.Equal(t, "powersave", p.Governor)
	assert.Nil(t, p.Turbo)
}

func TestNewManagerRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		p    profile.Profile
	}{
		{"empty name", profile.Profile{Governor: "powersave"}},
		{"no governor", profile.Profile{Name: "x"}},
		{"zero max", profile.Profile{Name: "x", Governor: "powersave", MaxFreq: freq(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := profile.NewManager(logger.Nop(), tt.p)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.HasCode(err, errors.ErrInvalidProfile))
		})
	}
}

func TestGetUnknown(t *testing.T) {
	_, err := newManager(t).Get("turbo-mode")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrProfileNotFound))
}

func TestMaximum(t *testing.T) {
	p := profile.Maximum(cpu.Info{MinFreq: 800, MaxFreq: 4800})

	assert.Equal(t, "performance", p.Governor)
	require.NotNil(t, p.MaxFreq)
	assert.Equal(t, cpu.Frequency(4800), *p.MaxFreq)
	require.NotNil(t, p.Turbo)
	assert.True(t, *p.Turbo)
	assert.NoError(t, profile.Validate(p))
}

func expectedApplyWrites() []string {
	var paths []string
	for _, file := range []string{"scaling_governor", "scaling_min_freq", "scaling_max_freq"} {
		for core := 0; core < 4; core++ {
			paths = append(paths, fmt.Sprintf("%s/%s", sysfstest.CorePath(core), file))
		}
	}

	return append(paths, sysfstest.NoTurboPath)
}

func TestApplyWriteOrder(t *testing.T) {
	fake := fourCores()
	c := newCPU(t, fake)
	m := newManager(t)

	p := profile.Profile{Name: "fast", Governor: "performance", MaxFreq: freq(4200), Turbo: flag(true)}
	require.NoError(t, m.Apply(p, c))

	assert.Equal(t, expectedApplyWrites(), fake.WritePaths())

	writes := fake.Writes()
	assert.Equal(t, "performance", writes[0].Value)
	assert.Equal(t, "800000", writes[4].Value)
	assert.Equal(t, "4200000", writes[8].Value)
	assert.Equal(t, "0", writes[12].Value)
}

func TestApplyTurboFailureKeepsFrequencies(t *testing.T) {
	fake := fourCores()
	fake.DenyWrite(sysfstest.NoTurboPath)
	c := newCPU(t, fake)
	m := newManager(t)

	p := profile.Profile{Name: "fast", Governor: "performance", MaxFreq: freq(4200), Turbo: flag(true)}
	err := m.Apply(p, c)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrApplyProfile))

	ae, ok := profile.AsApplyError(err)
	require.True(t, ok)
	assert.Equal(t, []string{profile.StepTurbo}, ae.Steps())
	assert.True(t, errors.HasCode(ae.Failures[0].Err, errors.ErrIO))

	assert.Equal(t, expectedApplyWrites()[:12], fake.WritePaths())
	for core := 0; core < 4; core++ {
		got, err := c.ScalingMaxFreq(core)
		require.NoError(t, err)
		assert.Equal(t, cpu.Frequency(4200), got)
	}
}

func TestApplyWithoutOptionalSteps(t *testing.T) {
	fake := fourCores()
	c := newCPU(t, fake)
	m := newManager(t)

	require.NoError(t, m.Apply(profile.Profile{Name: "gov", Governor: "powersave"}, c))
	assert.Len(t, fake.Writes(), 4)
}

func TestApplyCollectsEveryStep(t *testing.T) {
	fake := fourCores()
	fake.SetFile(sysfstest.NoTurboPath, "0")
	fake.DenyWrite(sysfstest.CorePath(2) + "/scaling_max_freq")
	c := newCPU(t, fake)
	m := newManager(t)

	p := profile.Profile{Name: "odd", Governor: "conservative", MaxFreq: freq(4200), Turbo: flag(false)}
	err := m.Apply(p, c)
	require.Error(t, err)

	ae, ok := profile.AsApplyError(err)
	require.True(t, ok)
	assert.Equal(t, []string{profile.StepGovernor, profile.StepMaxFreq}, ae.Steps())
	assert.True(t, errors.HasCode(err, errors.ErrApplyProfile))
	assert.True(t, errors.HasCode(err, errors.ErrUnknownGovernor))
	assert.True(t, errors.HasCode(err, errors.ErrIO))

	pf, ok := cpu.AsPartialFailure(ae.Failures[1].Err)
	require.True(t, ok)
	assert.Equal(t, []int{2}, pf.Cores())

	turbo, err := c.TurboEnabled()
	require.NoError(t, err)
	assert.False(t, turbo)
}

type stubController struct {
	cores    int
	minErr   map[int]error
	calls    []string
	turboErr error
}

func (s *stubController) CoreCount() int { return s.cores }

func (s *stubController) SetGovernorAll(name string) error {
	s.calls = append(s.calls, "governor "+name)
	return nil
}

func (s *stubController) HardwareMinFreq(core int) (cpu.Frequency, error) {
	if err := s.minErr[core]; err != nil {
		return 0, err
	}

	return 400, nil
}

func (s *stubController) SetScalingMinFreq(core int, f cpu.Frequency) error {
	s.calls = append(s.calls, fmt.Sprintf("min %d %d", core, f))
	return nil
}

func (s *stubController) SetScalingMaxFreq(core int, f cpu.Frequency) error {
	s.calls = append(s.calls, fmt.Sprintf("max %d %d", core, f))
	return nil
}

func (s *stubController) SetTurbo(enabled bool) error {
	s.calls = append(s.calls, fmt.Sprintf("turbo %t", enabled))
	return s.turboErr
}

func TestApplyHardwareMinUnreadable(t *testing.T) {
	stub := &stubController{
		cores:  2,
		minErr: map[int]error{0: errors.New().New(errors.ErrIO)},
	}
	m := newManager(t)

	err := m.Apply(profile.Profile{Name: "cap", Governor: "powersave", MaxFreq: freq(1800)}, stub)
	require.Error(t, err)

	ae, ok := profile.AsApplyError(err)
	require.True(t, ok)
	assert.Equal(t, []string{profile.StepMinFreq}, ae.Steps())
	assert.Equal(t, []string{
		"governor powersave",
		"min 1 400",
		"max 0 1800",
		"max 1 1800",
	}, stub.calls)
}
