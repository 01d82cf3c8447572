package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/mutker/cpupowerctl/internal/config"
	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/pid"
	"codeberg.org/mutker/cpupowerctl/internal/sysfs/sysfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture() *sysfstest.FS {
	fake := sysfstest.New()
	fake.AddCores(4, sysfstest.DefaultCore())
	fake.SetFile(sysfstest.NoTurboPath, "0")
	fake.AddZone(0, "iwlwifi_1", 61500)
	fake.AddZone(1, "x86_pkg_temp", 55200,
		sysfstest.Trip{Temp: 100000, Type: "critical"},
	)

	return fake
}

type harness struct {
	t      *testing.T
	fake   *sysfstest.FS
	pidDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "cpupowerctl.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[[profiles]]
name = "quiet"
governor = "powersave"
max_freq = 2000
turbo = false
`), 0o600))
	t.Setenv(config.ConfigEnv, cfgPath)

	return &harness{t: t, fake: newFixture(), pidDir: t.TempDir()}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()

	a := newApp("test")
	a.fs = h.fake
	a.models = cpu.StaticModel("Test CPU @ 3.00GHz")
	a.pidFile = pid.New(h.pidDir)

	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()

	return out.String(), err
}

func (h *harness) core(id int, file string) string {
	return h.fake.Content(sysfstest.CorePath(id) + "/" + file)
}

func TestStatus(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("status")
	require.NoError(t, err)

	assert.Contains(t, out, "Test CPU @ 3.00GHz")
	assert.Contains(t, out, "intel_pstate")
	assert.Contains(t, out, "Cores:     4")
	assert.Contains(t, out, "Range:     800 MHz - 4.8 GHz")
	assert.Contains(t, out, "Average:   2.4 GHz")
	assert.Contains(t, out, "Available: performance powersave")
	assert.Contains(t, out, "Turbo:     on")
	assert.Contains(t, out, "CPU temp:  55.2°C")
	assert.Contains(t, out, "CORE")
	assert.Regexp(t, `0 +2.4 GHz +800 MHz +4.8 GHz +powersave`, out)
	assert.Equal(t, 5, strings.Count(out, "powersave"))
}

func TestStatusGovernorsUnreadable(t *testing.T) {
	h := newHarness(t)
	h.fake.DenyRead(sysfstest.CorePath(0) + "/scaling_available_governors")

	out, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "Available: unknown")
}

func TestStatusUnsupportedTurbo(t *testing.T) {
	h := newHarness(t)
	for id := 0; id < 4; id++ {
		h.fake.SetFile(sysfstest.CorePath(id)+"/scaling_driver", "cppc_cpufreq")
	}

	out, err := h.run("status")
	require.NoError(t, err)
	assert.Contains(t, out, "unknown (cppc_cpufreq)")
	assert.Contains(t, out, "Turbo:     unsupported")
}

func TestSetGovernor(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("set-governor", "performance", "--core", "1")
	require.NoError(t, err)
	assert.Equal(t, "powersave", h.core(0, "scaling_governor"))
	assert.Equal(t, "performance", h.core(1, "scaling_governor"))

	_, err = h.run("set-governor", "performance")
	require.NoError(t, err)
	for id := 0; id < 4; id++ {
		assert.Equal(t, "performance", h.core(id, "scaling_governor"))
	}

	_, err = h.run("set-governor", "ondemand")
	require.Error(t, err)
	pf, ok := cpu.AsPartialFailure(err)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2, 3}, pf.Cores())
}

func TestSetFrequency(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("set-frequency", "3000")
	require.NoError(t, err)
	assert.Contains(t, out, "3 GHz")
	for id := 0; id < 4; id++ {
		assert.Equal(t, "3000000", h.core(id, "scaling_min_freq"))
		assert.Equal(t, "3000000", h.core(id, "scaling_max_freq"))
	}

	_, err = h.run("set-frequency", "1200", "--max-only")
	require.NoError(t, err)
	assert.Equal(t, "1200000", h.core(2, "scaling_max_freq"))

	h.fake.ResetWrites()
	_, err = h.run("set-frequency", "9000")
	require.Error(t, err)
	assert.Empty(t, h.fake.Writes())

	_, err = h.run("set-frequency", "fast")
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestSetTurbo(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("set-turbo", "off")
	require.NoError(t, err)
	assert.Contains(t, out, "Turbo off")
	assert.Equal(t, "1", h.fake.Content(sysfstest.NoTurboPath))

	_, err = h.run("set-turbo", "on")
	require.NoError(t, err)
	assert.Equal(t, "0", h.fake.Content(sysfstest.NoTurboPath))

	_, err = h.run("set-turbo", "maybe")
	assert.True(t, errors.HasCode(err, errors.ErrInvalidArgument))
}

func TestApplyProfile(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("apply-profile", "quiet")
	require.NoError(t, err)
	for id := 0; id < 4; id++ {
		assert.Equal(t, "powersave", h.core(id, "scaling_governor"))
		assert.Equal(t, "800000", h.core(id, "scaling_min_freq"))
		assert.Equal(t, "2000000", h.core(id, "scaling_max_freq"))
	}
	assert.Equal(t, "1", h.fake.Content(sysfstest.NoTurboPath))

	_, err = h.run("apply-profile", "gaming")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrProfileNotFound))
}

func TestApplyProfileReportsFailedSteps(t *testing.T) {
	h := newHarness(t)
	h.fake.DenyWrite(sysfstest.NoTurboPath)

	out, err := h.run("apply-profile", "performance")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrApplyProfile))
	assert.Contains(t, out, "step turbo failed")
	assert.Equal(t, "performance", h.core(3, "scaling_governor"))
}

func TestMaxFrequency(t *testing.T) {
	h := newHarness(t)
	h.fake.SetFile(sysfstest.NoTurboPath, "1")
	for id := 0; id < 4; id++ {
		h.fake.SetFile(sysfstest.CorePath(id)+"/scaling_max_freq", "2000000")
	}

	out, err := h.run("max-frequency")
	require.NoError(t, err)
	assert.Contains(t, out, "4.8 GHz")
	for id := 0; id < 4; id++ {
		assert.Equal(t, "performance", h.core(id, "scaling_governor"))
		assert.Equal(t, "4800000", h.core(id, "scaling_max_freq"))
	}
	assert.Equal(t, "0", h.fake.Content(sysfstest.NoTurboPath))
}

func TestProfiles(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("profiles")
	require.NoError(t, err)

	for _, name := range []string{"power-saver", "balanced", "performance", "quiet"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "2 GHz")
}

func TestThermal(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("thermal")
	require.NoError(t, err)
	assert.Contains(t, out, "iwlwifi_1")
	assert.Contains(t, out, "x86_pkg_temp")
	assert.Contains(t, out, "critical@100.0°C")
	assert.Contains(t, out, "CPU temperature: 55.2°C")
}

func TestMonitor(t *testing.T) {
	h := newHarness(t)

	out, err := h.run("monitor", "--count", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "GOVERNOR")
	assert.Contains(t, out, "2.4 GHz")
	assert.Contains(t, out, "55.2°C")
	assert.Contains(t, out, "61.5°C")
	assert.NoFileExists(t, pid.New(h.pidDir).Path())
}

func TestMonitorAlreadyRunning(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, pid.New(h.pidDir).Write())

	_, err := h.run("monitor", "--count", "1")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrAlreadyRunning))
}

func TestMonitorAppliesProfileAndRecords(t *testing.T) {
	h := newHarness(t)
	db := filepath.Join(t.TempDir(), "metrics.db")

	_, err := h.run("monitor", "--count", "2", "--interval", "1",
		"--profile", "quiet", "--metrics", "--metrics-db", db)
	require.NoError(t, err)
	assert.Equal(t, "2000000", h.core(0, "scaling_max_freq"))

	out, err := h.run("history", "--metrics", "--metrics-db", db)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "powersave"))

	_, err = h.run("history")
	assert.True(t, errors.HasCode(err, errors.ErrInvalidConfig))
}

func TestVersion(t *testing.T) {
	t.Setenv(config.ConfigEnv, filepath.Join(t.TempDir(), "missing.toml"))
	h := &harness{t: t, fake: sysfstest.New(), pidDir: t.TempDir()}

	out, err := h.run("version")
	require.NoError(t, err)
	assert.Contains(t, out, "cpupowerctl test")
}

func TestCPUInitFailure(t *testing.T) {
	h := newHarness(t)
	h.fake = sysfstest.New()

	_, err := h.run("status")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrInitFailed))

	out, err := h.run("profiles")
	require.NoError(t, err)
	assert.Contains(t, out, "balanced")
}

func TestConfiguredLogLevels(t *testing.T) {
	levels := []config.LogLevel{
		config.LogLevelDebug,
		config.LogLevelInfo,
		config.LogLevelWarning,
		config.LogLevelError,
	}

	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			require.True(t, level.IsValid())
			_, ok := logger.ParseLevel(level.String())
			assert.True(t, ok)

			h := newHarness(t)
			_, err := h.run("profiles", "--log-level", level.String())
			assert.NoError(t, err)
		})
	}
}
