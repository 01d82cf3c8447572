package cli

import (
	"sync"

	"codeberg.org/mutker/cpupowerctl/internal/config"
	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/profile"
	"codeberg.org/mutker/cpupowerctl/internal/thermal"
	"github.com/spf13/afero"
)

// session owns one long-lived manager of each kind. The managers are not
// safe for concurrent use, so every call goes through the manager's lock.
// Managers are built on first use; a construction failure is returned to
// every caller of that manager.
type session struct {
	cfg    *config.Config
	fs     afero.Fs
	models cpu.ModelSource

	cpuMu   sync.Mutex
	cpu     *cpu.Manager
	cpuErr  error
	cpuOnce sync.Once

	thermalMu   sync.Mutex
	thermal     *thermal.Manager
	thermalErr  error
	thermalOnce sync.Once

	profileMu   sync.Mutex
	profiles    *profile.Manager
	profileErr  error
	profileOnce sync.Once
}

func newSession(cfg *config.Config, fs afero.Fs, models cpu.ModelSource) *session {
	return &session{cfg: cfg, fs: fs, models: models}
}

func (s *session) withCPU(fn func(*cpu.Manager) error) error {
	s.cpuOnce.Do(func() {
		opts := []cpu.Option{
			cpu.WithFS(s.fs),
			cpu.WithRoot(s.cfg.CPURoot),
			cpu.WithProcRoot(s.cfg.ProcRoot),
		}
		if s.models != nil {
			opts = append(opts, cpu.WithModelSource(s.models))
		}
		s.cpu, s.cpuErr = cpu.New(logger.Global("cpu"), opts...)
	})
	if s.cpuErr != nil {
		return s.cpuErr
	}

	s.cpuMu.Lock()
	defer s.cpuMu.Unlock()

	return fn(s.cpu)
}

func (s *session) withThermal(fn func(*thermal.Manager) error) error {
	s.thermalOnce.Do(func() {
		s.thermal, s.thermalErr = thermal.New(logger.Global("thermal"),
			thermal.WithFS(s.fs),
			thermal.WithRoot(s.cfg.ThermalRoot),
		)
	})
	if s.thermalErr != nil {
		return s.thermalErr
	}

	s.thermalMu.Lock()
	defer s.thermalMu.Unlock()

	return fn(s.thermal)
}

func (s *session) withProfiles(fn func(*profile.Manager) error) error {
	s.profileOnce.Do(func() {
		s.profiles, s.profileErr = profile.NewManager(logger.Global("profile"), s.cfg.CustomProfiles()...)
	})
	if s.profileErr != nil {
		return s.profileErr
	}

	s.profileMu.Lock()
	defer s.profileMu.Unlock()

	return fn(s.profiles)
}

// applyProfile holds the profile lock, then the CPU lock.
func (s *session) applyProfile(p profile.Profile) error {
	return s.withProfiles(func(pm *profile.Manager) error {
		return s.withCPU(func(c *cpu.Manager) error {
			return pm.Apply(p, c)
		})
	})
}

// applyNamed looks name up and applies it.
func (s *session) applyNamed(name string) error {
	var p profile.Profile
	err := s.withProfiles(func(pm *profile.Manager) error {
		var err error
		p, err = pm.Get(name)
		return err
	})
	if err != nil {
		return err
	}

	return s.applyProfile(p)
}
