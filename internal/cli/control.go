package cli

import (
	"fmt"

	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"github.com/spf13/cobra"
)

const allCores = -1

func newSetGovernorCmd(a *app) *cobra.Command {
	var core int

	cmd := &cobra.Command{
		Use:   "set-governor NAME",
		Short: "Set the scaling governor on every core, or one with --core",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			err := a.session.withCPU(func(m *cpu.Manager) error {
				if core == allCores {
					return m.SetGovernorAll(name)
				}
				return m.SetGovernor(core, name)
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Governor set to %s\n", name)
			return nil
		},
	}

	cmd.Flags().IntVar(&core, "core", allCores, "Only change this core")

	return cmd
}

func newSetFrequencyCmd(a *app) *cobra.Command {
	var maxOnly bool

	cmd := &cobra.Command{
		Use:   "set-frequency MHZ",
		Short: "Pin every core to a frequency, or cap it with --max-only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			freq, err := parseFreq(args[0])
			if err != nil {
				return err
			}

			err = a.session.withCPU(func(m *cpu.Manager) error {
				if !maxOnly {
					return m.SetFrequencyAll(freq)
				}

				var failures []cpu.CoreFailure
				for core := 0; core < m.CoreCount(); core++ {
					if err := m.SetScalingMaxFreq(core, freq); err != nil {
						failures = append(failures, cpu.CoreFailure{Core: core, Err: err})
					}
				}
				if len(failures) > 0 {
					return errors.New().Wrap(errors.ErrPartialFailure, &cpu.PartialFailure{Failures: failures})
				}
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Frequency set to %s\n", formatFreq(freq))
			return nil
		},
	}

	cmd.Flags().BoolVar(&maxOnly, "max-only", false, "Only lower or raise the upper scaling bound")

	return cmd
}

func newSetTurboCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "set-turbo on|off",
		Short:     "Enable or disable turbo boost",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := parseOnOff(args[0])
			if err != nil {
				return err
			}

			if err := a.session.withCPU(func(m *cpu.Manager) error {
				return m.SetTurbo(enabled)
			}); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Turbo %s\n", onOff(enabled))
			return nil
		},
	}
}
