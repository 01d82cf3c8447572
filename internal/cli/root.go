// Package cli implements the cpupowerctl command-line interface using Cobra.
package cli

import (
	"fmt"
	"io"
	"os"

	"codeberg.org/mutker/cpupowerctl/internal/config"
	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/logger"
	"codeberg.org/mutker/cpupowerctl/internal/pid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app carries what every command shares. fs, models and pidFile are
// replaced in tests.
type app struct {
	version string
	fs      afero.Fs
	models  cpu.ModelSource
	pidFile pid.File
	cfg     *config.Config
	session *session
}

func newApp(version string) *app {
	return &app{
		version: version,
		pidFile: pid.Default(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cpupowerctl",
		Short: "Inspect and control CPU frequency scaling",
		Long: `cpupowerctl reads and sets cpufreq governors, frequency limits and
turbo boost on every core, reports thermal zones, and applies named
power profiles.`,
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		newStatusCmd(a),
		newSetGovernorCmd(a),
		newSetFrequencyCmd(a),
		newSetTurboCmd(a),
		newApplyProfileCmd(a),
		newMaxFrequencyCmd(a),
		newProfilesCmd(a),
		newThermalCmd(a),
		newMonitorCmd(a),
		newHistoryCmd(a),
		newVersionCmd(a),
	)

	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(config.WithFlags(cmd.Flags()))
	if err != nil {
		return err
	}

	level, ok := logger.ParseLevel(cfg.LogLevel)
	if !ok {
		return errors.New().WithData(errors.ErrInvalidLogLevel, config.FieldData{Field: "log_level", Value: cfg.LogLevel})
	}
	logger.Init(level, logger.IsService())
	if cfg.File != "" {
		logger.Debug().Str("path", cfg.File).Msg("Config loaded")
	}

	a.cfg = cfg
	a.session = newSession(cfg, a.fs, a.models)

	return nil
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	root := newRootCmd(newApp(version))

	if err := root.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError writes err and, for multi-core failures, one line per core.
func printError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)

	if pf, ok := cpu.AsPartialFailure(err); ok {
		for _, f := range pf.Failures {
			fmt.Fprintf(w, "  core %d: %v\n", f.Core, f.Err)
		}
	}

	if errors.HasCode(err, errors.ErrUnsupportedDriver) {
		fmt.Fprintln(w, "Turbo control is not available for this scaling driver.")
	}
}
