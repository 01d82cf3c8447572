package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/metrics"
	"github.com/spf13/cobra"
)

const defaultHistoryLimit = 20

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent samples stored by monitor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.Metrics.Enabled {
				return errors.New().WithMessage(errors.ErrInvalidConfig, "metrics are disabled, enable them with --metrics or [metrics] enabled = true")
			}

			repo, err := metrics.NewRepository(metricsConfig(a.cfg), logger.Global("metrics"))
			if err != nil {
				return err
			}
			defer repo.Close()

			snaps, err := repo.Recent(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tSESSION\tAVERAGE\tCPU TEMP\tGOVERNOR\tTURBO")
			for _, s := range snaps {
				session := s.SessionID
				if len(session) > 8 {
					session = session[:8]
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					s.Timestamp.Format(time.DateTime),
					session,
					formatFreq(s.Frequency.Average),
					formatTemp(s.Thermal.CPU),
					s.State.Governor,
					onOff(s.State.Turbo),
				)
			}

			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", defaultHistoryLimit, "Number of samples to show")

	return cmd
}
