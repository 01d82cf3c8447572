package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Config is the loaded configuration. Sources in increasing precedence:
// defaults, the TOML file, CPUPOWERCTL_* environment variables, flags.
type Config struct {
	// Interval between monitor samples, in seconds.
	Interval    int             `mapstructure:"interval"`
	LogLevel    string          `mapstructure:"log_level"`
	CPURoot     string          `mapstructure:"cpu_root"`
	ThermalRoot string          `mapstructure:"thermal_root"`
	ProcRoot    string          `mapstructure:"proc_root"`
	Profile     string          `mapstructure:"profile"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
	Profiles    []ProfileConfig `mapstructure:"profiles"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
}

// MetricsConfig controls the snapshot database written by the monitor.
type MetricsConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	DBPath       string        `mapstructure:"db_path"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// ProfileConfig is a [[profiles]] table.
type ProfileConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Governor    string `mapstructure:"governor"`
	MaxFreq     *uint  `mapstructure:"max_freq"`
	Turbo       *bool  `mapstructure:"turbo"`
}

// Option defines a configuration option that can be passed to Load
type Option func(*options) error

type options struct {
	configPath string
	envPrefix  string
	flags      *pflag.FlagSet
}

// WithConfigFile specifies an explicit configuration file path. A missing
// explicit file is an error.
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configPath = path
		return nil
	}
}

// WithEnvPrefix specifies a custom environment variable prefix
// Default is "CPUPOWERCTL"
func WithEnvPrefix(prefix string) Option {
	return func(o *options) error {
		o.envPrefix = prefix
		return nil
	}
}

// WithFlags overrides values with the flags in fs that were set. fs should
// carry the flags added by RegisterFlags.
func WithFlags(fs *pflag.FlagSet) Option {
	return func(o *options) error {
		o.flags = fs
		return nil
	}
}

// LogLevel represents valid logging levels
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// IsValid returns whether the log level is valid
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarning, LogLevelError:
		return true
	default:
		return false
	}
}

func (l LogLevel) String() string {
	return string(l)
}

// FieldData is attached to validation errors.
type FieldData struct {
	Field string
	Value any
}
