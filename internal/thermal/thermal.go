// Package thermal enumerates kernel thermal zones and reads their
// temperatures and trip points.
package thermal

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/sysfs"
	"github.com/spf13/afero"
)

const (
	DefaultRoot = "/sys/class/thermal"

	zonePrefix = "thermal_zone"

	// UnknownTripType replaces the type of a trip point whose _type file is
	// missing.
	UnknownTripType = "unknown"

	milliDegreesPerDegree = 1000.0
)

// cpuZoneMarkers identify a CPU package sensor in a lowercased zone type.
var cpuZoneMarkers = []string{"x86_pkg_temp", "cpu", "core"}

type zonePath struct {
	number int
	path   string
}

// Manager reads thermal zones discovered at construction. It is not safe for
// concurrent use.
type Manager struct {
	fs     *sysfs.FS
	root   string
	zones  []zonePath
	logger logger.Logger
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	fs   afero.Fs
	root string
}

// WithFS reads zones through fsys instead of the host filesystem.
func WithFS(fsys afero.Fs) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithRoot sets the thermal class directory. Default is /sys/class/thermal.
func WithRoot(root string) Option {
	return func(o *options) {
		o.root = root
	}
}

// New discovers thermal_zoneN directories, ordered by N. A readable root
// without zones is valid.
func New(log logger.Logger, opts ...Option) (*Manager, error) {
	o := options{root: DefaultRoot}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Manager{
		fs:     sysfs.New(o.fs),
		root:   o.root,
		logger: log,
	}

	names, err := m.fs.ReadDirNames(m.root)
	if err != nil {
		return nil, errors.New().Wrap(errors.ErrInitFailed, err)
	}

	for _, name := range names {
		suffix, ok := strings.CutPrefix(name, zonePrefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 {
			continue
		}
		m.zones = append(m.zones, zonePath{number: n, path: filepath.Join(m.root, name)})
	}

	sort.Slice(m.zones, func(i, j int) bool { return m.zones[i].number < m.zones[j].number })

	m.logger.Info().Int("zones", len(m.zones)).Msg("Thermal zones discovered")

	return m, nil
}

// ZoneCount returns the number of discovered zones.
func (m *Manager) ZoneCount() int {
	return len(m.zones)
}

// Temperature returns the temperature of zone in degrees Celsius.
func (m *Manager) Temperature(zone int) (float64, error) {
	if err := m.checkZone(zone); err != nil {
		return 0, err
	}

	return m.readCelsius(filepath.Join(m.zones[zone].path, "temp"))
}

// AllTemperatures returns the temperature of every zone in zone order.
func (m *Manager) AllTemperatures() ([]float64, error) {
	temps := make([]float64, len(m.zones))
	for zone := range m.zones {
		t, err := m.Temperature(zone)
		if err != nil {
			return nil, err
		}
		temps[zone] = t
	}

	return temps, nil
}

// ZoneType returns the label of zone.
func (m *Manager) ZoneType(zone int) (string, error) {
	if err := m.checkZone(zone); err != nil {
		return "", err
	}

	return m.fs.ReadString(filepath.Join(m.zones[zone].path, "type"))
}

// ZoneInfo resolves temperature, type and trip points of zone.
func (m *Manager) ZoneInfo(zone int) (Zone, error) {
	temp, err := m.Temperature(zone)
	if err != nil {
		return Zone{}, err
	}

	typ, err := m.ZoneType(zone)
	if err != nil {
		return Zone{}, err
	}

	trips, err := m.tripPoints(zone)
	if err != nil {
		return Zone{}, err
	}

	return Zone{ID: zone, Type: typ, Temperature: temp, TripPoints: trips}, nil
}

// AllZones resolves every zone, failing as a whole if any zone fails.
func (m *Manager) AllZones() ([]Zone, error) {
	zones := make([]Zone, len(m.zones))
	for zone := range m.zones {
		z, err := m.ZoneInfo(zone)
		if err != nil {
			return nil, err
		}
		zones[zone] = z
	}

	return zones, nil
}

// MaxTemperature returns the hottest zone's temperature.
func (m *Manager) MaxTemperature() (float64, error) {
	if len(m.zones) == 0 {
		return 0, errors.New().WithData(errors.ErrResourceNotFound, m.root)
	}

	temps, err := m.AllTemperatures()
	if err != nil {
		return 0, err
	}

	hottest := temps[0]
	for _, t := range temps[1:] {
		hottest = max(hottest, t)
	}

	return hottest, nil
}

// CPUTemperature returns the temperature of the first zone that looks like a
// CPU package sensor, or the hottest zone if none does.
func (m *Manager) CPUTemperature() (float64, error) {
	for zone := range m.zones {
		typ, err := m.ZoneType(zone)
		if err != nil {
			m.logger.Debug().Err(err).Int("zone", zone).Msg("Skipping zone with unreadable type")
			continue
		}

		if isCPUZone(typ) {
			return m.Temperature(zone)
		}
	}

	return m.MaxTemperature()
}

func isCPUZone(typ string) bool {
	typ = strings.ToLower(typ)
	for _, marker := range cpuZoneMarkers {
		if strings.Contains(typ, marker) {
			return true
		}
	}

	return false
}

// tripPoints probes trip_point_0, _1, ... and stops at the first index
// without a temperature file.
func (m *Manager) tripPoints(zone int) ([]TripPoint, error) {
	dir := m.zones[zone].path

	var trips []TripPoint
	for id := 0; ; id++ {
		tempPath := filepath.Join(dir, fmt.Sprintf("trip_point_%d_temp", id))
		if !m.fs.Exists(tempPath) {
			break
		}

		temp, err := m.readCelsius(tempPath)
		if err != nil {
			return nil, err
		}

		typ, err := m.fs.ReadString(filepath.Join(dir, fmt.Sprintf("trip_point_%d_type", id)))
		if err != nil {
			if !sysfs.IsNotExist(err) {
				return nil, err
			}
			typ = UnknownTripType
		}

		trips = append(trips, TripPoint{ID: id, Temperature: temp, Type: typ})
	}

	return trips, nil
}

func (m *Manager) readCelsius(path string) (float64, error) {
	milli, err := m.fs.ReadInt(path)
	if err != nil {
		return 0, err
	}

	return float64(milli) / milliDegreesPerDegree, nil
}

func (m *Manager) checkZone(zone int) error {
	if zone < 0 || zone >= len(m.zones) {
		return errors.New().WithData(errors.ErrInvalidArgument, struct {
			Zone      int
			ZoneCount int
		}{
			Zone:      zone,
			ZoneCount: len(m.zones),
		})
	}

	return nil
}
