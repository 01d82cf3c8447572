// Package sysfstest builds in-memory cpufreq and thermal trees for tests and
// records every write made against them.
package sysfstest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

const (
	CPURoot     = "/sys/devices/system/cpu"
	ThermalRoot = "/sys/class/thermal"

	NoTurboPath = CPURoot + "/intel_pstate/no_turbo"
	BoostPath   = CPURoot + "/cpufreq/boost"
)

// Write is one completed write to a control file.
type Write struct {
	Path  string
	Value string
}

// Core describes the cpufreq files of one core. Frequencies are in kHz as
// the kernel exposes them.
type Core struct {
	Driver    string
	Governor  string
	Available []string
	CurFreq   uint64
	MinFreq   uint64
	MaxFreq   uint64
	HWMin     uint64
	HWMax     uint64
}

// DefaultCore is an intel_pstate core with an 800-4800 MHz hardware range.
func DefaultCore() Core {
	return Core{
		Driver:    "intel_pstate",
		Governor:  "powersave",
		Available: []string{"performance", "powersave"},
		CurFreq:   2400000,
		MinFreq:   800000,
		MaxFreq:   4800000,
		HWMin:     800000,
		HWMax:     4800000,
	}
}

// Trip describes one trip point. NoType omits the _type file.
type Trip struct {
	Temp   int64
	Type   string
	NoType bool
}

// FS is an afero.Fs over a MemMapFs that records writes and can be told to
// fail reads or writes of specific paths.
type FS struct {
	afero.Fs

	writes    []Write
	denyWrite map[string]error
	denyRead  map[string]error
}

var _ afero.Fs = (*FS)(nil)

// New returns an empty tree.
func New() *FS {
	return &FS{
		Fs:        afero.NewMemMapFs(),
		denyWrite: make(map[string]error),
		denyRead:  make(map[string]error),
	}
}

// SetFile creates or replaces a file with content followed by a newline.
func (f *FS) SetFile(path, content string) {
	if err := f.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic(err)
	}
	if err := afero.WriteFile(f.Fs, path, []byte(content+"\n"), 0o644); err != nil {
		panic(err)
	}
}

// RemoveFile deletes a file from the tree.
func (f *FS) RemoveFile(path string) {
	if err := f.Fs.Remove(path); err != nil {
		panic(err)
	}
}

// MkdirP creates an empty directory and its parents.
func (f *FS) MkdirP(path string) {
	if err := f.Fs.MkdirAll(path, 0o755); err != nil {
		panic(err)
	}
}

// Content returns the trimmed content of path, or "" if it is missing.
func (f *FS) Content(path string) string {
	data, err := afero.ReadFile(f.Fs, path)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(string(data))
}

// CorePath returns the cpufreq directory of core id.
func CorePath(id int) string {
	return fmt.Sprintf("%s/cpu%d/cpufreq", CPURoot, id)
}

// AddCore creates cpu<id>/cpufreq with the files described by c.
func (f *FS) AddCore(id int, c Core) {
	dir := CorePath(id)
	f.SetFile(dir+"/scaling_driver", c.Driver)
	f.SetFile(dir+"/scaling_governor", c.Governor)
	f.SetFile(dir+"/scaling_available_governors", strings.Join(c.Available, " "))
	f.SetFile(dir+"/scaling_cur_freq", strconv.FormatUint(c.CurFreq, 10))
	f.SetFile(dir+"/scaling_min_freq", strconv.FormatUint(c.MinFreq, 10))
	f.SetFile(dir+"/scaling_max_freq", strconv.FormatUint(c.MaxFreq, 10))
	f.SetFile(dir+"/cpuinfo_min_freq", strconv.FormatUint(c.HWMin, 10))
	f.SetFile(dir+"/cpuinfo_max_freq", strconv.FormatUint(c.HWMax, 10))
}

// AddCores creates n identical cores numbered from 0.
func (f *FS) AddCores(n int, c Core) {
	for i := 0; i < n; i++ {
		f.AddCore(i, c)
	}
}

// ZonePath returns the directory of thermal zone id.
func ZonePath(id int) string {
	return fmt.Sprintf("%s/thermal_zone%d", ThermalRoot, id)
}

// AddZone creates thermal_zone<id> with a type, a temperature in
// millidegrees and optional trip points.
func (f *FS) AddZone(id int, typ string, milliC int64, trips ...Trip) {
	dir := ZonePath(id)
	f.SetFile(dir+"/type", typ)
	f.SetFile(dir+"/temp", strconv.FormatInt(milliC, 10))
	for i, tp := range trips {
		f.SetFile(fmt.Sprintf("%s/trip_point_%d_temp", dir, i), strconv.FormatInt(tp.Temp, 10))
		if !tp.NoType {
			f.SetFile(fmt.Sprintf("%s/trip_point_%d_type", dir, i), tp.Type)
		}
	}
}

// DenyWrite makes every write to path fail with a permission error.
func (f *FS) DenyWrite(path string) {
	f.denyWrite[path] = fs.ErrPermission
}

// DenyRead makes every read of path fail with a permission error.
func (f *FS) DenyRead(path string) {
	f.denyRead[path] = fs.ErrPermission
}

// Writes returns the writes completed so far, in order.
func (f *FS) Writes() []Write {
	out := make([]Write, len(f.writes))
	copy(out, f.writes)

	return out
}

// WritePaths returns the paths of completed writes, in order.
func (f *FS) WritePaths() []string {
	out := make([]string, 0, len(f.writes))
	for _, w := range f.writes {
		out = append(out, w.Path)
	}

	return out
}

// ResetWrites forgets recorded writes.
func (f *FS) ResetWrites() {
	f.writes = nil
}

func (f *FS) Open(name string) (afero.File, error) {
	if err, ok := f.denyRead[name]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}

	return f.Fs.Open(name)
}

func (f *FS) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR) == 0 {
		if err, ok := f.denyRead[name]; ok {
			return nil, &os.PathError{Op: "open", Path: name, Err: err}
		}

		return f.Fs.OpenFile(name, flag, perm)
	}

	if err, ok := f.denyWrite[name]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: err}
	}

	file, err := f.Fs.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}

	return &recordingFile{File: file, owner: f}, nil
}

type recordingFile struct {
	afero.File
	owner *FS
	buf   strings.Builder
}

func (r *recordingFile) Write(p []byte) (int, error) {
	r.buf.Write(p)
	return r.File.Write(p)
}

func (r *recordingFile) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.File.WriteString(s)
}

func (r *recordingFile) Close() error {
	r.owner.writes = append(r.owner.writes, Write{
		Path:  r.File.Name(),
		Value: strings.TrimSpace(r.buf.String()),
	})

	return r.File.Close()
}
