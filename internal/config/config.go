package config

import (
	"os"
	"strings"
	"time"

	"codeberg.org/mutker/cpupowerctl/internal/cpu"
	"codeberg.org/mutker/cpupowerctl/internal/errors"
	"codeberg.org/mutker/cpupowerctl/internal/profile"
	"codeberg.org/mutker/cpupowerctl/internal/thermal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultConfigFile   = "/etc/cpupowerctl.toml"
	DefaultEnvPrefix    = "CPUPOWERCTL"
	DefaultInterval     = 2
	DefaultLogLevel     = string(LogLevelInfo)
	DefaultMetricsDB    = "/var/lib/cpupowerctl/metrics.db"
	DefaultBatchSize    = 10
	DefaultBatchTimeout = 30 * time.Second

	// ConfigEnv names the variable holding an alternate config file path.
	ConfigEnv = DefaultEnvPrefix + "_CONFIG"
)

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"interval":     "interval",
	"log-level":    "log_level",
	"cpu-root":     "cpu_root",
	"thermal-root": "thermal_root",
	"proc-root":    "proc_root",
	"profile":      "profile",
	"metrics":      "metrics.enabled",
	"metrics-db":   "metrics.db_path",
}

// RegisterFlags adds the configuration flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to the configuration file")
	fs.Int("interval", DefaultInterval, "Seconds between monitor samples")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.String("cpu-root", cpu.DefaultRoot, "cpufreq sysfs root")
	fs.String("thermal-root", thermal.DefaultRoot, "Thermal class sysfs root")
	fs.String("proc-root", cpu.DefaultProcRoot, "procfs mount point")
	fs.String("profile", "", "Profile applied when monitoring starts")
	fs.Bool("metrics", false, "Record monitor snapshots")
	fs.String("metrics-db", DefaultMetricsDB, "Path to the metrics database")
}

// Load reads the configuration and validates it.
func Load(opts ...Option) (*Config, error) {
	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(o.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, explicit := configPath(o)
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	file := path
	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, errors.New().WrapWithData(errors.ErrReadConfig, err, path)
		}
		file = ""
	}

	if o.flags != nil {
		if err := bindFlags(v, o.flags); err != nil {
			return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("interval", DefaultInterval)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("cpu_root", cpu.DefaultRoot)
	v.SetDefault("thermal_root", thermal.DefaultRoot)
	v.SetDefault("proc_root", cpu.DefaultProcRoot)
	v.SetDefault("profile", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.db_path", DefaultMetricsDB)
	v.SetDefault("metrics.batch_size", DefaultBatchSize)
	v.SetDefault("metrics.batch_timeout", DefaultBatchTimeout)
}

// configPath resolves the file to read: option, then --config, then the
// environment, then the default. explicit is false only for the default.
func configPath(o options) (string, bool) {
	if o.configPath != "" {
		return o.configPath, true
	}

	if o.flags != nil {
		if f := o.flags.Lookup("config"); f != nil && f.Value.String() != "" {
			return f.Value.String(), true
		}
	}

	if env := os.Getenv(o.envPrefix + "_CONFIG"); env != "" {
		return env, true
	}

	return DefaultConfigFile, false
}

// bindFlags binds only flags that were set, so unset flag defaults do not
// shadow file and environment values.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})

	return bindErr
}

// Validate checks value ranges and profile definitions.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return errors.New().WithData(errors.ErrInvalidInterval, FieldData{Field: "interval", Value: c.Interval})
	}

	if !LogLevel(c.LogLevel).IsValid() {
		return errors.New().WithData(errors.ErrInvalidLogLevel, FieldData{Field: "log_level", Value: c.LogLevel})
	}

	if c.Metrics.Enabled {
		switch {
		case c.Metrics.DBPath == "":
			return errors.New().WithData(errors.ErrInvalidConfig, FieldData{Field: "metrics.db_path", Value: c.Metrics.DBPath})
		case c.Metrics.BatchSize <= 0:
			return errors.New().WithData(errors.ErrInvalidConfig, FieldData{Field: "metrics.batch_size", Value: c.Metrics.BatchSize})
		case c.Metrics.BatchTimeout <= 0:
			return errors.New().WithData(errors.ErrInvalidConfig, FieldData{Field: "metrics.batch_timeout", Value: c.Metrics.BatchTimeout})
		}
	}

	for _, p := range c.Profiles {
		if err := profile.Validate(p.Profile()); err != nil {
			return errors.New().WrapWithData(errors.ErrInvalidConfig, err, FieldData{Field: "profiles", Value: p.Name})
		}
	}

	return nil
}

// IntervalDuration returns Interval as a time.Duration.
func (c *Config) IntervalDuration() time.Duration {
	return time.Duration(c.Interval) * time.Second
}

// CustomProfiles converts the [[profiles]] tables.
func (c *Config) CustomProfiles() []profile.Profile {
	out := make([]profile.Profile, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		out = append(out, p.Profile())
	}

	return out
}

// Profile converts the table into a profile.
func (p ProfileConfig) Profile() profile.Profile {
	out := profile.Profile{
		Name:        p.Name,
		Description: p.Description,
		Governor:    p.Governor,
	}

	if p.MaxFreq != nil {
		f := cpu.Frequency(*p.MaxFreq)
		out.MaxFreq = &f
	}

	if p.Turbo != nil {
		t := *p.Turbo
		out.Turbo = &t
	}

	return out
}
