package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"codeberg.org/mutker/cpupowerctl/internal/thermal"
	"github.com/spf13/cobra"
)

func newThermalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "thermal",
		Short: "List thermal zones with temperatures and trip points",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				zones   []thermal.Zone
				cpuTemp float64
				cpuErr  error
			)
			if err := a.session.withThermal(func(m *thermal.Manager) error {
				var err error
				if zones, err = m.AllZones(); err != nil {
					return err
				}
				cpuTemp, cpuErr = m.CPUTemperature()
				return nil
			}); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(zones) == 0 {
				fmt.Fprintln(out, "No thermal zones found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ZONE\tTYPE\tTEMPERATURE\tTRIP POINTS")
			for _, z := range zones {
				trips := make([]string, 0, len(z.TripPoints))
				for _, tp := range z.TripPoints {
					trips = append(trips, fmt.Sprintf("%s@%s", tp.Type, formatTemp(tp.Temperature)))
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", z.ID, z.Type, formatTemp(z.Temperature), strings.Join(trips, " "))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if cpuErr == nil {
				fmt.Fprintf(out, "\nCPU temperature: %s\n", formatTemp(cpuTemp))
			}

			return nil
		},
	}
}
