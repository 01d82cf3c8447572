// Package pid guards against two monitors running at once.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
)

const fileName = "cpupowerctl.pid"

// File is a PID file. The zero value is not usable; use New or Default.
type File struct {
	path string
}

// Default returns the PID file in the system temp directory.
func Default() File {
	return New(os.TempDir())
}

// New returns the PID file inside dir.
func New(dir string) File {
	return File{path: filepath.Join(dir, fileName)}
}

// Path returns the file location.
func (f File) Path() string {
	return f.path
}

// Write records the current process ID. It fails with ErrAlreadyRunning if
// the file names a live process. A stale or unreadable file is replaced.
func (f File) Write() error {
	errFactory := errors.New()

	if running, pid := f.running(); running {
		return errFactory.WithData(errors.ErrAlreadyRunning, struct {
			PID  int
			Path string
		}{
			PID:  pid,
			Path: f.path,
		})
	}

	if err := os.WriteFile(f.path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Remove deletes the file. A missing file is not an error.
func (f File) Remove() error {
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

func (f File) running() (bool, int) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return false, 0
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}

	return process.Signal(syscall.Signal(0)) == nil, pid
}
