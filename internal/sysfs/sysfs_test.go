package sysfs_test

import (
	"testing"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/sysfs"
	"codeberg.org/mutker/cpupowerctl/internal/sysfs/sysfstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadValues(t *testing.T) {
	fake := sysfstest.New()
	fake.SetFile("/sys/a/freq", "2400000")
	fake.SetFile("/sys/a/temp", "-1500")
	fake.SetFile("/sys/a/govs", "performance powersave  schedutil")
	fake.SetFile("/sys/a/flag", "1")
	s := sysfs.New(fake)

	freq, err := s.ReadUint("/sys/a/freq")
	require.NoError(t, err)
	assert.Equal(t, uint64(2400000), freq)

	temp, err := s.ReadInt("/sys/a/temp")
	require.NoError(t, err)
	assert.Equal(t, int64(-1500), temp)

	govs, err := s.ReadFields("/sys/a/govs")
	require.NoError(t, err)
	assert.Equal(t, []string{"performance", "powersave", "schedutil"}, govs)

	on, err := s.ReadBool("/sys/a/flag")
	require.NoError(t, err)
	assert.True(t, on)
}

func TestReadErrorsCarryPath(t *testing.T) {
	fake := sysfstest.New()
	fake.SetFile("/sys/a/freq", "fast")
	s := sysfs.New(fake)

	_, err := s.ReadUint("/sys/a/missing")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrIO))
	assert.True(t, sysfs.IsNotExist(err))
	data, ok := errors.DataOf(err, errors.ErrIO)
	require.True(t, ok)
	assert.Equal(t, sysfs.PathData{Path: "/sys/a/missing"}, data)

	_, err = s.ReadUint("/sys/a/freq")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrParse))
	data, ok = errors.DataOf(err, errors.ErrParse)
	require.True(t, ok)
	assert.Equal(t, sysfs.ParseData{Path: "/sys/a/freq", Raw: "fast"}, data)
}

func TestWriteDoesNotCreateFiles(t *testing.T) {
	fake := sysfstest.New()
	fake.SetFile("/sys/a/governor", "powersave")
	s := sysfs.New(fake)

	require.NoError(t, s.WriteString("/sys/a/governor", "performance"))
	assert.Equal(t, "performance", fake.Content("/sys/a/governor"))

	err := s.WriteUint("/sys/a/missing", 1)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrIO))
	assert.False(t, s.Exists("/sys/a/missing"))

	assert.Equal(t, []sysfstest.Write{{Path: "/sys/a/governor", Value: "performance"}}, fake.Writes())
}

func TestDeniedWrite(t *testing.T) {
	fake := sysfstest.New()
	fake.SetFile("/sys/a/boost", "0")
	fake.DenyWrite("/sys/a/boost")
	s := sysfs.New(fake)

	err := s.WriteBool("/sys/a/boost", true)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrIO))
	assert.Equal(t, "0", fake.Content("/sys/a/boost"))
	assert.Empty(t, fake.Writes())
}

func TestReadDirNames(t *testing.T) {
	fake := sysfstest.New()
	fake.MkdirP("/sys/class/thermal/thermal_zone0")
	fake.MkdirP("/sys/class/thermal/cooling_device0")
	s := sysfs.New(fake)

	names, err := s.ReadDirNames("/sys/class/thermal")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"thermal_zone0", "cooling_device0"}, names)

	_, err = s.ReadDirNames("/sys/class/missing")
	assert.True(t, errors.HasCode(err, errors.ErrIO))
}
