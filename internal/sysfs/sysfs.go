// Package sysfs reads and writes kernel control files. All access goes
// through an afero.Fs so callers can substitute an in-memory tree.
package sysfs

import (
	"io/fs"
	"os"
	"strconv"
	"strings"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"github.com/spf13/afero"
)

// PathData is attached to ErrIO errors.
type PathData struct {
	Path string
}

// ParseData is attached to ErrParse errors.
type ParseData struct {
	Path string
	Raw  string
}

// FS is a thin accessor over a filesystem holding sysfs-style files: one
// value per file, newline terminated.
type FS struct {
	fs afero.Fs
}

// New wraps fsys. A nil fsys means the host filesystem.
func New(fsys afero.Fs) *FS {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &FS{fs: fsys}
}

// ReadString returns the file content with surrounding whitespace removed.
func (s *FS) ReadString(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", errors.New().WrapWithData(errors.ErrIO, err, PathData{Path: path})
	}

	return strings.TrimSpace(string(data)), nil
}

// ReadFields splits the file content on whitespace, preserving order.
func (s *FS) ReadFields(path string) ([]string, error) {
	raw, err := s.ReadString(path)
	if err != nil {
		return nil, err
	}

	return strings.Fields(raw), nil
}

// ReadUint parses the file content as an unsigned decimal integer.
func (s *FS) ReadUint(path string) (uint64, error) {
	raw, err := s.ReadString(path)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New().WrapWithData(errors.ErrParse, err, ParseData{Path: path, Raw: raw})
	}

	return v, nil
}

// ReadInt parses the file content as a signed decimal integer.
func (s *FS) ReadInt(path string) (int64, error) {
	raw, err := s.ReadString(path)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New().WrapWithData(errors.ErrParse, err, ParseData{Path: path, Raw: raw})
	}

	return v, nil
}

// ReadBool reads a 0/1 flag file.
func (s *FS) ReadBool(path string) (bool, error) {
	v, err := s.ReadUint(path)
	if err != nil {
		return false, err
	}

	return v != 0, nil
}

// WriteString writes value to an existing control file. Control files are
// never created: a missing file is an ErrIO.
func (s *FS) WriteString(path, value string) error {
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return errors.New().WrapWithData(errors.ErrIO, err, PathData{Path: path})
	}

	_, werr := f.WriteString(value)
	cerr := f.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		return errors.New().WrapWithData(errors.ErrIO, werr, PathData{Path: path})
	}

	return nil
}

// WriteUint writes v as a decimal integer.
func (s *FS) WriteUint(path string, v uint64) error {
	return s.WriteString(path, strconv.FormatUint(v, 10))
}

// WriteBool writes 1 for true and 0 for false.
func (s *FS) WriteBool(path string, v bool) error {
	if v {
		return s.WriteString(path, "1")
	}

	return s.WriteString(path, "0")
}

// Exists reports whether path exists. Errors other than "not exist" are
// treated as existing so that callers go on to surface the real read error.
func (s *FS) Exists(path string) bool {
	_, err := s.fs.Stat(path)
	if err == nil {
		return true
	}

	return !errors.Is(err, fs.ErrNotExist)
}

// IsNotExist reports whether err was caused by a missing file.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// ReadDirNames lists the entry names of a directory.
func (s *FS) ReadDirNames(path string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, path)
	if err != nil {
		return nil, errors.New().WrapWithData(errors.ErrIO, err, PathData{Path: path})
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names, nil
}
