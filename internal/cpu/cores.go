package cpu

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/sysfs"
)

// Core is one logical CPU with a cpufreq policy directory.
type Core struct {
	// Kernel CPU number, the N in cpuN. Offline or cpufreq-less CPUs are
	// skipped, so it can differ from the core's index.
	Number int
	Path   string
}

// EnumerateCores lists every cpuN directory under root that has a cpufreq
// subdirectory, ordered by N.
func EnumerateCores(fs *sysfs.FS, root string) ([]Core, error) {
	errFactory := errors.New()

	names, err := fs.ReadDirNames(root)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrInitFailed, err)
	}

	var cores []Core
	for _, name := range names {
		suffix, ok := strings.CutPrefix(name, "cpu")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 {
			continue
		}

		path := filepath.Join(root, name, "cpufreq")
		if !fs.Exists(path) {
			continue
		}

		cores = append(cores, Core{Number: n, Path: path})
	}

	if len(cores) == 0 {
		return nil, errFactory.WithData(errors.ErrInitFailed, struct {
			Phase string
			Root  string
		}{
			Phase: "enumerate_cores",
			Root:  root,
		})
	}

	sort.Slice(cores, func(i, j int) bool { return cores[i].Number < cores[j].Number })

	return cores, nil
}
