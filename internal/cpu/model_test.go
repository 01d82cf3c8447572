package cpu_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const x86CPUInfo = `processor	: 0
vendor_id	: GenuineIntel
cpu family	: 6
model		: 142
model name	: Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz
stepping	: 10
cpu MHz		: 1800.000
cache size	: 8192 KB
physical id	: 0
siblings	: 8
core id		: 0
cpu cores	: 4
flags		: fpu vme de pse

processor	: 1
vendor_id	: GenuineIntel
cpu family	: 6
model		: 142
model name	: Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz
stepping	: 10
cpu MHz		: 1800.000
cache size	: 8192 KB
physical id	: 0
siblings	: 8
core id		: 1
cpu cores	: 4
flags		: fpu vme de pse

`

func TestProcfsModelSource(t *testing.T) {
	if runtime.GOARCH != "amd64" && runtime.GOARCH != "386" {
		t.Skip("cpuinfo fixture is in x86 format")
	}

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "cpuinfo"), []byte(x86CPUInfo), 0o600))

	model, err := cpu.NewProcfsModelSource(root).Model()
	require.NoError(t, err)
	assert.Equal(t, "Intel(R) Core(TM) i7-8550U CPU @ 1.80GHz", model)
}

func TestProcfsModelSourceMissing(t *testing.T) {
	_, err := cpu.NewProcfsModelSource(t.TempDir()).Model()
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrIO))
}
