package cpu

import (
	"path/filepath"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/sysfs"
	"github.com/prometheus/procfs"
)

const DefaultProcRoot = procfs.DefaultMountPoint

type procfsModel struct {
	root string
}

// NewProcfsModelSource reads the model name from <root>/cpuinfo.
func NewProcfsModelSource(root string) ModelSource {
	return &procfsModel{root: root}
}

func (p *procfsModel) Model() (string, error) {
	errFactory := errors.New()
	path := filepath.Join(p.root, "cpuinfo")

	fs, err := procfs.NewFS(p.root)
	if err != nil {
		return "", errFactory.WrapWithData(errors.ErrIO, err, sysfs.PathData{Path: p.root})
	}

	info, err := fs.CPUInfo()
	if err != nil {
		return "", errFactory.WrapWithData(errors.ErrIO, err, sysfs.PathData{Path: path})
	}

	for _, c := range info {
		if c.ModelName != "" {
			return c.ModelName, nil
		}
	}
	for _, c := range info {
		if c.VendorID != "" {
			return c.VendorID, nil
		}
	}

	return "", errFactory.WithData(errors.ErrParse, sysfs.ParseData{Path: path})
}

// StaticModel is a ModelSource returning a fixed string.
type StaticModel string

func (s StaticModel) Model() (string, error) {
	return string(s), nil
}
