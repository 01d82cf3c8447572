// Package cpu reads and controls cpufreq state for every logical core.
//
// A Manager is not safe for concurrent use. Callers sharing one between
// goroutines must hold a single lock around every call. Multi-core writes are
// not transactional: every core is attempted, failures are reported per core
// and successful writes are never rolled back.
package cpu

import (
	"path/filepath"
	"slices"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/sysfs"
	"github.com/spf13/afero"
)

const (
	DefaultRoot = "/sys/devices/system/cpu"

	governorFile           = "scaling_governor"
	availableGovernorsFile = "scaling_available_governors"
	curFreqFile            = "scaling_cur_freq"
	scalingMinFile         = "scaling_min_freq"
	scalingMaxFile         = "scaling_max_freq"
	hardwareMinFile        = "cpuinfo_min_freq"
	hardwareMaxFile        = "cpuinfo_max_freq"

	kHzPerMHz = 1000
)

type Manager struct {
	fs     *sysfs.FS
	root   string
	cores  []Core
	driver Driver
	limits Limits
	models ModelSource
	logger logger.Logger
}

// Limits are hardware frequency bounds.
type Limits struct {
	Min, Max Frequency
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	fs       afero.Fs
	root     string
	procRoot string
	models   ModelSource
}

// WithFS reads and writes control files through fsys instead of the host
// filesystem.
func WithFS(fsys afero.Fs) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithRoot sets the cpu sysfs directory. Default is /sys/devices/system/cpu.
func WithRoot(root string) Option {
	return func(o *options) {
		o.root = root
	}
}

// WithProcRoot sets the procfs mount point used for the model name.
func WithProcRoot(root string) Option {
	return func(o *options) {
		o.procRoot = root
	}
}

// WithModelSource overrides how the model name is resolved.
func WithModelSource(src ModelSource) Option {
	return func(o *options) {
		o.models = src
	}
}

// New discovers cores, the scaling driver and the hardware limits of core 0.
// It fails if any of them cannot be determined.
func New(log logger.Logger, opts ...Option) (*Manager, error) {
	errFactory := errors.New()

	o := options{root: DefaultRoot, procRoot: DefaultProcRoot}
	for _, opt := range opts {
		opt(&o)
	}
	if o.models == nil {
		o.models = NewProcfsModelSource(o.procRoot)
	}

	m := &Manager{
		fs:     sysfs.New(o.fs),
		root:   o.root,
		models: o.models,
		logger: log,
	}

	var err error
	if m.cores, err = EnumerateCores(m.fs, m.root); err != nil {
		return nil, err
	}

	m.driver = DetectDriver(m.fs, m.cores[0], m.logger)

	if m.limits, err = m.readLimits(0); err != nil {
		return nil, errFactory.Wrap(errors.ErrInitFailed, err)
	}
	if m.limits.Min > m.limits.Max {
		return nil, errFactory.WithData(errors.ErrInitFailed, m.limits)
	}

	m.logger.Info().
		Int("cores", len(m.cores)).
		Str("driver", m.driver.String()).
		Uint("min_mhz", uint(m.limits.Min)).
		Uint("max_mhz", uint(m.limits.Max)).
		Msg("CPU frequency control initialized")

	if m.driver.Family == Unknown {
		m.logger.Warn().Str("driver", m.driver.Raw).Msg("Unrecognized scaling driver, turbo control disabled")
	}

	return m, nil
}

// CoreCount returns the number of controllable cores.
func (m *Manager) CoreCount() int {
	return len(m.cores)
}

// Driver returns the scaling driver detected at construction.
func (m *Manager) Driver() Driver {
	return m.driver
}

// Info returns the model name and the facts captured at construction.
func (m *Manager) Info() (Info, error) {
	model, err := m.models.Model()
	if err != nil {
		return Info{}, err
	}

	return Info{
		Model:     model,
		CoreCount: len(m.cores),
		Driver:    m.driver,
		MinFreq:   m.limits.Min,
		MaxFreq:   m.limits.Max,
	}, nil
}

// Governor returns the current governor of core.
func (m *Manager) Governor(core int) (string, error) {
	if err := m.checkCore(core); err != nil {
		return "", err
	}

	return m.fs.ReadString(m.path(core, governorFile))
}

// AvailableGovernors returns the governors core accepts, in kernel order.
func (m *Manager) AvailableGovernors(core int) ([]string, error) {
	if err := m.checkCore(core); err != nil {
		return nil, err
	}

	return m.fs.ReadFields(m.path(core, availableGovernorsFile))
}

// CurrentFreq returns the current frequency of core.
func (m *Manager) CurrentFreq(core int) (Frequency, error) {
	if err := m.checkCore(core); err != nil {
		return 0, err
	}

	return m.readFreq(core, curFreqFile)
}

// AllFrequencies returns the current frequency of every core in core order.
// It fails as a whole if any core cannot be read.
func (m *Manager) AllFrequencies() ([]Frequency, error) {
	freqs := make([]Frequency, len(m.cores))
	for core := range m.cores {
		f, err := m.readFreq(core, curFreqFile)
		if err != nil {
			return nil, err
		}
		freqs[core] = f
	}

	return freqs, nil
}

// AverageFrequency returns the mean current frequency across all cores.
func (m *Manager) AverageFrequency() (Frequency, error) {
	freqs, err := m.AllFrequencies()
	if err != nil {
		return 0, err
	}

	var sum uint64
	for _, f := range freqs {
		sum += uint64(f)
	}

	return Frequency(sum / uint64(len(freqs))), nil
}

// HardwareMinFreq reads the hardware minimum of core.
func (m *Manager) HardwareMinFreq(core int) (Frequency, error) {
	if err := m.checkCore(core); err != nil {
		return 0, err
	}

	return m.readFreq(core, hardwareMinFile)
}

// HardwareMaxFreq reads the hardware maximum of core.
func (m *Manager) HardwareMaxFreq(core int) (Frequency, error) {
	if err := m.checkCore(core); err != nil {
		return 0, err
	}

	return m.readFreq(core, hardwareMaxFile)
}

// ScalingMinFreq reads the current lower scaling bound of core.
func (m *Manager) ScalingMinFreq(core int) (Frequency, error) {
	if err := m.checkCore(core); err != nil {
		return 0, err
	}

	return m.readFreq(core, scalingMinFile)
}

// ScalingMaxFreq reads the current upper scaling bound of core.
func (m *Manager) ScalingMaxFreq(core int) (Frequency, error) {
	if err := m.checkCore(core); err != nil {
		return 0, err
	}

	return m.readFreq(core, scalingMaxFile)
}

// AllCoreStatus reads frequency and governor of every core. It fails as a
// whole if any core cannot be read.
func (m *Manager) AllCoreStatus() ([]CoreStatus, error) {
	status := make([]CoreStatus, len(m.cores))
	for core := range m.cores {
		freq, err := m.readFreq(core, curFreqFile)
		if err != nil {
			return nil, err
		}

		governor, err := m.fs.ReadString(m.path(core, governorFile))
		if err != nil {
			return nil, err
		}

		status[core] = CoreStatus{CoreID: core, CurrentFreq: freq, Governor: governor}
	}

	return status, nil
}

// TurboEnabled reports whether boost is enabled.
func (m *Manager) TurboEnabled() (bool, error) {
	ctl, err := turboControlFor(m.root, m.driver)
	if err != nil {
		return false, err
	}

	stored, err := m.fs.ReadBool(ctl.path)
	if err != nil {
		return false, err
	}

	return ctl.decode(stored), nil
}

// SetGovernor sets the governor of a single core.
func (m *Manager) SetGovernor(core int, name string) error {
	if err := m.checkCore(core); err != nil {
		return err
	}

	return m.setGovernor(core, name)
}

// SetGovernorAll sets the governor of every core. All cores are attempted;
// failed cores are reported in a PartialFailure.
func (m *Manager) SetGovernorAll(name string) error {
	var failures []CoreFailure
	for core := range m.cores {
		if err := m.setGovernor(core, name); err != nil {
			failures = append(failures, CoreFailure{Core: core, Err: err})
		}
	}

	if len(failures) > 0 {
		m.logger.Warn().Str("governor", name).Ints("failed_cores", coreIDs(failures)).Msg("Governor not applied to all cores")
	}

	return partialFailure(failures)
}

// SetScalingMinFreq sets the lower scaling bound of core. freq must be within
// the core's hardware limits.
func (m *Manager) SetScalingMinFreq(core int, freq Frequency) error {
	if err := m.checkCore(core); err != nil {
		return err
	}
	if err := m.checkRange(core, freq); err != nil {
		return err
	}

	return m.writeFreq(core, scalingMinFile, freq)
}

// SetScalingMaxFreq sets the upper scaling bound of core. freq must be within
// the core's hardware limits.
func (m *Manager) SetScalingMaxFreq(core int, freq Frequency) error {
	if err := m.checkCore(core); err != nil {
		return err
	}
	if err := m.checkRange(core, freq); err != nil {
		return err
	}

	return m.writeFreq(core, scalingMaxFile, freq)
}

// SetFrequencyAll pins both scaling bounds of every core to freq. All cores
// are attempted; failed cores are reported in a PartialFailure.
func (m *Manager) SetFrequencyAll(freq Frequency) error {
	var failures []CoreFailure
	for core := range m.cores {
		if err := m.pinFrequency(core, freq); err != nil {
			failures = append(failures, CoreFailure{Core: core, Err: err})
		}
	}

	if len(failures) > 0 {
		m.logger.Warn().Uint("mhz", uint(freq)).Ints("failed_cores", coreIDs(failures)).Msg("Frequency not applied to all cores")
	}

	return partialFailure(failures)
}

// SetTurbo enables or disables boost using the driver's encoding.
func (m *Manager) SetTurbo(enabled bool) error {
	ctl, err := turboControlFor(m.root, m.driver)
	if err != nil {
		return err
	}

	if err := m.fs.WriteBool(ctl.path, ctl.encode(enabled)); err != nil {
		return err
	}

	m.logger.Debug().Bool("enabled", enabled).Str("path", ctl.path).Msg("Turbo set")

	return nil
}

func (m *Manager) setGovernor(core int, name string) error {
	available, err := m.fs.ReadFields(m.path(core, availableGovernorsFile))
	if err != nil {
		return err
	}

	if !slices.Contains(available, name) {
		return errors.New().WithData(errors.ErrUnknownGovernor, GovernorData{Name: name, Available: available})
	}

	if err := m.fs.WriteString(m.path(core, governorFile), name); err != nil {
		return err
	}

	m.logger.Debug().Int("core", core).Str("governor", name).Msg("Governor set")

	return nil
}

// pinFrequency writes the bound that keeps min <= max valid first.
func (m *Manager) pinFrequency(core int, freq Frequency) error {
	if err := m.checkRange(core, freq); err != nil {
		return err
	}

	currentMax, err := m.readFreq(core, scalingMaxFile)
	if err != nil {
		return err
	}

	order := []string{scalingMinFile, scalingMaxFile}
	if freq > currentMax {
		order = []string{scalingMaxFile, scalingMinFile}
	}

	for _, file := range order {
		if err := m.writeFreq(core, file, freq); err != nil {
			return err
		}
	}

	return nil
}

func (m *Manager) checkCore(core int) error {
	if core < 0 || core >= len(m.cores) {
		return errors.New().WithData(errors.ErrInvalidArgument, struct {
			Core      int
			CoreCount int
		}{
			Core:      core,
			CoreCount: len(m.cores),
		})
	}

	return nil
}

func (m *Manager) checkRange(core int, freq Frequency) error {
	limits, err := m.readLimits(core)
	if err != nil {
		return err
	}

	if freq < limits.Min || freq > limits.Max {
		return errors.New().WithData(errors.ErrOutOfRange, RangeData{Value: freq, Min: limits.Min, Max: limits.Max})
	}

	return nil
}

func (m *Manager) readLimits(core int) (Limits, error) {
	minFreq, err := m.readFreq(core, hardwareMinFile)
	if err != nil {
		return Limits{}, err
	}

	maxFreq, err := m.readFreq(core, hardwareMaxFile)
	if err != nil {
		return Limits{}, err
	}

	return Limits{Min: minFreq, Max: maxFreq}, nil
}

func (m *Manager) path(core int, file string) string {
	return filepath.Join(m.cores[core].Path, file)
}

func (m *Manager) readFreq(core int, file string) (Frequency, error) {
	khz, err := m.fs.ReadUint(m.path(core, file))
	if err != nil {
		return 0, err
	}

	return Frequency(khz / kHzPerMHz), nil
}

func (m *Manager) writeFreq(core int, file string, freq Frequency) error {
	if err := m.fs.WriteUint(m.path(core, file), uint64(freq)*kHzPerMHz); err != nil {
		return err
	}

	m.logger.Debug().Int("core", core).Str("file", file).Uint("mhz", uint(freq)).Msg("Frequency bound set")

	return nil
}

func coreIDs(failures []CoreFailure) []int {
	ids := make([]int, 0, len(failures))
	for _, f := range failures {
		ids = append(ids, f.Core)
	}

	return ids
}
