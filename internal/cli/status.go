package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/thermal"
	"github.com/spf13/cobra"
)

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show processor, per-core and thermal status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, a)
		},
	}
}

type statusReport struct {
	info    cpu.Info
	turbo   string
	average   cpu.Frequency
	governors string
	cores     []coreRow
}

type coreRow struct {
	cpu.CoreStatus
	minFreq, maxFreq cpu.Frequency
}

func runStatus(cmd *cobra.Command, a *app) error {
	var r statusReport
	err := a.session.withCPU(func(m *cpu.Manager) error {
		var err error
		if r.info, err = m.Info(); err != nil {
			return err
		}
		if r.average, err = m.AverageFrequency(); err != nil {
			return err
		}
		status, err := m.AllCoreStatus()
		if err != nil {
			return err
		}
		for _, c := range status {
			row := coreRow{CoreStatus: c}
			if row.minFreq, err = m.ScalingMinFreq(c.CoreID); err != nil {
				return err
			}
			if row.maxFreq, err = m.ScalingMaxFreq(c.CoreID); err != nil {
				return err
			}
			r.cores = append(r.cores, row)
		}

		available, err := m.AvailableGovernors(0)
		if err != nil {
			logger.Debug().Err(err).Msg("Available governors unreadable")
			r.governors = "unknown"
		} else {
			r.governors = strings.Join(available, " ")
		}

		turbo, err := m.TurboEnabled()
		switch {
		case err == nil:
			r.turbo = onOff(turbo)
		case errors.HasCode(err, errors.ErrUnsupportedDriver):
			r.turbo = "unsupported"
		default:
			return err
		}

		return nil
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Model:     %s\n", r.info.Model)
	fmt.Fprintf(out, "Driver:    %s\n", r.info.Driver)
	fmt.Fprintf(out, "Cores:     %d\n", r.info.CoreCount)
	fmt.Fprintf(out, "Range:     %s - %s\n", formatFreq(r.info.MinFreq), formatFreq(r.info.MaxFreq))
	fmt.Fprintf(out, "Average:   %s\n", formatFreq(r.average))
	fmt.Fprintf(out, "Available: %s\n", r.governors)
	fmt.Fprintf(out, "Turbo:     %s\n", r.turbo)

	err = a.session.withThermal(func(m *thermal.Manager) error {
		temp, err := m.CPUTemperature()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "CPU temp:  %s\n", formatTemp(temp))
		return nil
	})
	if err != nil {
		fmt.Fprintln(out, "CPU temp:  unavailable")
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CORE\tFREQUENCY\tMIN\tMAX\tGOVERNOR")
	for _, c := range r.cores {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			c.CoreID, formatFreq(c.CurrentFreq), formatFreq(c.minFreq), formatFreq(c.maxFreq), c.Governor)
	}

	return w.Flush()
}
