package cli

import (
	"fmt"
	"text/tabwriter"

	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/profile"
	"github.com/spf13/cobra"
)

func newApplyProfileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply-profile NAME",
		Short: "Apply a built-in or configured power profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session.applyNamed(args[0]); err != nil {
				return reportApply(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Profile %s applied\n", args[0])
			return nil
		},
	}
}

func newMaxFrequencyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "max-frequency",
		Short: "Run every core at its hardware maximum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var info cpu.Info
			if err := a.session.withCPU(func(m *cpu.Manager) error {
				var err error
				info, err = m.Info()
				return err
			}); err != nil {
				return err
			}

			if err := a.session.applyProfile(profile.Maximum(info)); err != nil {
				return reportApply(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Maximum frequency %s applied\n", formatFreq(info.MaxFreq))
			return nil
		},
	}
}

// reportApply lists each failed step before returning err.
func reportApply(cmd *cobra.Command, err error) error {
	ae, ok := profile.AsApplyError(err)
	if !ok {
		return err
	}

	out := cmd.ErrOrStderr()
	for _, f := range ae.Failures {
		fmt.Fprintf(out, "step %s failed: %v\n", f.Step, f.Err)
		if pf, ok := cpu.AsPartialFailure(f.Err); ok {
			fmt.Fprintf(out, "  failed cores: %v\n", pf.Cores())
		}
	}

	return err
}

func newProfilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List available profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var profiles []profile.Profile
			if err := a.session.withProfiles(func(m *profile.Manager) error {
				profiles = m.Profiles()
				return nil
			}); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tGOVERNOR\tMAX FREQUENCY\tTURBO\tDESCRIPTION")
			for _, p := range profiles {
				maxFreq, turbo := "-", "-"
				if p.MaxFreq != nil {
					maxFreq = formatFreq(*p.MaxFreq)
				}
				if p.Turbo != nil {
					turbo = onOff(*p.Turbo)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.Governor, maxFreq, turbo, p.Description)
			}

			return w.Flush()
		},
	}
}
