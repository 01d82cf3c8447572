package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/cpupowerctl/internal/config"
	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/metrics"
	"codeberg.org/mutker/cpupowerctl/internal/thermal"
	"github.com/spf13/cobra"
)

func newMonitorCmd(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Sample frequencies and temperatures on an interval",
		Long: `monitor prints a sample every --interval seconds until interrupted.
With metrics enabled every sample is also stored in the metrics database.
If a profile is configured it is applied before the first sample.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMonitor(cmd, a, count)
		},
	}

	cmd.Flags().IntVar(&count, "count", 0, "Stop after this many samples (0 runs until interrupted)")

	return cmd
}

func metricsConfig(cfg *config.Config) metrics.Config {
	return metrics.Config{
		DBPath:       cfg.Metrics.DBPath,
		Enabled:      cfg.Metrics.Enabled,
		BatchSize:    cfg.Metrics.BatchSize,
		BatchTimeout: cfg.Metrics.BatchTimeout,
	}
}

func runMonitor(cmd *cobra.Command, a *app, count int) error {
	if err := a.pidFile.Write(); err != nil {
		return err
	}
	defer func() {
		if err := a.pidFile.Remove(); err != nil {
			logger.ErrorWithCode(errors.New().Wrap(errors.ErrShutdownFailed, err)).Msg("Failed to remove PID file")
		}
	}()

	collector, err := metrics.NewService(metricsConfig(a.cfg), logger.Global("metrics"))
	if err != nil {
		return err
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.ErrorWithCode(errors.New().Wrap(errors.ErrShutdownFailed, err)).Msg("Failed to close metrics collector")
		}
	}()

	if name := a.cfg.Profile; name != "" {
		if err := a.session.applyNamed(name); err != nil {
			if errors.HasCode(err, errors.ErrProfileNotFound) {
				return err
			}
			logger.Warn().Err(err).Str("profile", name).Msg("Profile partially applied")
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(a.cfg.IntervalDuration())
	defer ticker.Stop()

	logger.Info().
		Int("interval", a.cfg.Interval).
		Str("session", collector.SessionID()).
		Bool("metrics", a.cfg.Metrics.Enabled).
		Msg("Monitor started")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "TIME      AVERAGE     MIN         MAX         CPU TEMP  MAX TEMP  GOVERNOR      TURBO")

	for taken := 0; ; {
		sampleOnce(ctx, a.session, collector, out)
		taken++

		if count > 0 && taken >= count {
			return nil
		}

		select {
		case <-ctx.Done():
			logger.Info().Msg("Received termination signal")
			return nil
		case <-ticker.C:
		}
	}
}

// sampleOnce prints and records one snapshot. Read failures are logged and
// the sample is skipped.
func sampleOnce(ctx context.Context, s *session, collector metrics.Collector, out io.Writer) {
	snap, err := s.snapshot()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to take sample")
		return
	}

	fmt.Fprintf(out, "%-8s  %-10s  %-10s  %-10s  %-8s  %-8s  %-12s  %s\n",
		snap.Timestamp.Format(time.TimeOnly),
		formatFreq(snap.Frequency.Average),
		formatFreq(snap.Frequency.Min),
		formatFreq(snap.Frequency.Max),
		formatTemp(snap.Thermal.CPU),
		formatTemp(snap.Thermal.Hottest),
		snap.State.Governor,
		onOff(snap.State.Turbo),
	)

	logger.Debug().
		Uint("avg_mhz", uint(snap.Frequency.Average)).
		Float64("cpu_temp", snap.Thermal.CPU).
		Str("governor", snap.State.Governor).
		Msg("Sample")

	if err := collector.Record(ctx, &snap); err != nil {
		logger.Warn().Err(err).Msg("Failed to record sample")
	}
}

// snapshot reads the CPU state and then the thermal state. Missing thermal
// data and turbo on unsupported drivers read as zero values.
func (s *session) snapshot() (metrics.Snapshot, error) {
	snap := metrics.Snapshot{Timestamp: time.Now()}

	err := s.withCPU(func(m *cpu.Manager) error {
		freqs, err := m.AllFrequencies()
		if err != nil {
			return err
		}
		lo, hi, avg := freqRange(freqs)
		snap.Frequency = metrics.FrequencyMetrics{Average: avg, Min: lo, Max: hi}

		if snap.State.Governor, err = m.Governor(0); err != nil {
			return err
		}

		turbo, err := m.TurboEnabled()
		if err != nil && !errors.HasCode(err, errors.ErrUnsupportedDriver) {
			return err
		}
		snap.State.Turbo = turbo

		return nil
	})
	if err != nil {
		return metrics.Snapshot{}, err
	}

	err = s.withThermal(func(m *thermal.Manager) error {
		if m.ZoneCount() == 0 {
			return nil
		}

		var err error
		if snap.Thermal.CPU, err = m.CPUTemperature(); err != nil {
			return err
		}
		snap.Thermal.Hottest, err = m.MaxTemperature()
		return err
	})
	if err != nil {
		logger.Debug().Err(err).Msg("Thermal data unavailable")
	}

	return snap, nil
}
