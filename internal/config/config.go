package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"github.com/turtacn/nightowl/pkg/consts"
	"github.com/turtacn/nightowl/pkg/errors"
	"github.com/turtacn/nightowl/pkg/protocol"
	"gopkg.in/yaml.v3"
)

// Flag names shared between the CLI and the override merge.
const (
	FlagConfig       = "config"
	FlagFile         = "file"
	FlagTime         = "time"
	FlagThreshold    = "threshold"
	FlagHost         = "host"
	FlagPort         = "port"
	FlagPassword     = "password"
	FlagLogLevel     = "log-level"
	FlagMetricsAddr  = "metrics-addr"
	FlagStatusSocket = "status-socket"
	FlagNoPowerOff   = "no-poweroff"
)

// Overrides holds the values bound to command-line flags. A value only
// replaces the file value when its flag was explicitly set.
type Overrides struct {
	ConfigFile   string
	LogFile      string
	Minutes      int
	Threshold    int
	Host         string
	Port         int
	Password     string
	LogLevel     string
	MetricsAddr  string
	StatusSocket string
	NoPowerOff   bool
}

// RegisterFlags binds the override flags onto fs.
func RegisterFlags(fs *pflag.FlagSet, o *Overrides) {
	fs.StringVarP(&o.ConfigFile, FlagConfig, "c", consts.DefaultConfigFile, "YAML file containing RCON config")
	fs.StringVarP(&o.LogFile, FlagFile, "f", consts.DefaultLogFile, "log file to watch")
	fs.IntVarP(&o.Minutes, FlagTime, "t", int(consts.DefaultInterval.Minutes()), "time (in mins) between player count checks")
	fs.IntVar(&o.Threshold, FlagThreshold, consts.DefaultThreshold, "empty checks tolerated before shutdown (shutdown after threshold+1)")
	fs.StringVar(&o.Host, FlagHost, consts.DefaultHost, "RCON host")
	fs.IntVar(&o.Port, FlagPort, consts.DefaultPort, "RCON port")
	fs.StringVar(&o.Password, FlagPassword, consts.DefaultPassword, "RCON password")
	fs.StringVar(&o.LogLevel, FlagLogLevel, "info", "log level (debug, info, warn, error)")
	fs.StringVar(&o.MetricsAddr, FlagMetricsAddr, "", "address to expose /metrics on (empty disables)")
	fs.StringVar(&o.StatusSocket, FlagStatusSocket, consts.DefaultStatusSocket, "unix socket serving status (empty disables)")
	fs.BoolVar(&o.NoPowerOff, FlagNoPowerOff, false, "stop the server but do not power off the host")
}

// Load reads the YAML file at path. A missing file is not an error: an
// empty config is returned and defaults fill it in.
func Load(path string) (*protocol.Config, error) {
	cfg := &protocol.Config{}
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.New(errors.ErrCodeConfigInvalid, "LoadConfig", "cannot read "+path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.ErrCodeConfigInvalid, "LoadConfig", "cannot parse "+path, err)
		}
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// ApplyDefaults fills every unset field with its documented default.
func ApplyDefaults(cfg *protocol.Config) {
	if cfg.Host == "" {
		cfg.Host = consts.DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = consts.DefaultPort
	}
	if cfg.LogFile == "" {
		cfg.LogFile = consts.DefaultLogFile
	}
	if cfg.IntervalMinutes == 0 {
		cfg.IntervalMinutes = int(consts.DefaultInterval.Minutes())
	}
	if cfg.Threshold == nil {
		v := consts.DefaultThreshold
		cfg.Threshold = &v
	}
	if cfg.PowerOff.Enabled == nil {
		v := true
		cfg.PowerOff.Enabled = &v
	}
	if cfg.PowerOff.DelayMinutes == nil {
		v := int(consts.DefaultPowerOffDelay.Minutes())
		cfg.PowerOff.DelayMinutes = &v
	}
	if len(cfg.PowerOff.Command) == 0 {
		cfg.PowerOff.Command = []string{"shutdown"}
	}
	if cfg.StatusSocket == nil {
		v := consts.DefaultStatusSocket
		cfg.StatusSocket = &v
	}
	if cfg.Observability.LogLevel == "" {
		cfg.Observability.LogLevel = "info"
	}
}

// ApplyOverrides copies every explicitly set flag onto cfg.
func ApplyOverrides(cfg *protocol.Config, fs *pflag.FlagSet, o *Overrides) {
	if fs.Changed(FlagFile) {
		cfg.LogFile = o.LogFile
	}
	if fs.Changed(FlagTime) {
		cfg.IntervalMinutes = o.Minutes
	}
	if fs.Changed(FlagThreshold) {
		v := o.Threshold
		cfg.Threshold = &v
	}
	if fs.Changed(FlagHost) {
		cfg.Host = o.Host
	}
	if fs.Changed(FlagPort) {
		cfg.Port = o.Port
	}
	if fs.Changed(FlagPassword) {
		cfg.Password = o.Password
	}
	if fs.Changed(FlagLogLevel) {
		cfg.Observability.LogLevel = o.LogLevel
	}
	if fs.Changed(FlagMetricsAddr) {
		cfg.Observability.MetricsAddr = o.MetricsAddr
	}
	if fs.Changed(FlagStatusSocket) {
		v := o.StatusSocket
		cfg.StatusSocket = &v
	}
	if fs.Changed(FlagNoPowerOff) && o.NoPowerOff {
		v := false
		cfg.PowerOff.Enabled = &v
	}
}

// Validate rejects configurations the supervisor cannot run with.
func Validate(cfg *protocol.Config) error {
	invalid := func(msg string) error {
		return errors.New(errors.ErrCodeConfigInvalid, "ValidateConfig", msg, nil)
	}
	switch {
	case cfg.Port < 1 || cfg.Port > 65535:
		return invalid(fmt.Sprintf("port %d out of range", cfg.Port))
	case cfg.IntervalMinutes < 1:
		return invalid(fmt.Sprintf("interval must be at least 1 minute, got %d", cfg.IntervalMinutes))
	case cfg.IdleThreshold() < 0:
		return invalid(fmt.Sprintf("threshold must not be negative, got %d", cfg.IdleThreshold()))
	case cfg.LogFile == "":
		return invalid("log file path is empty")
	case cfg.PowerOff.DelayMinutes != nil && *cfg.PowerOff.DelayMinutes < 0:
		return invalid("power_off.delay_minutes must not be negative")
	case cfg.PowerOffEnabled() && len(cfg.PowerOff.Command) == 0:
		return invalid("power_off.command is empty")
	}
	return nil
}

// Resolve loads the file named by the config flag, merges defaults and
// explicit flags, and validates the result.
func Resolve(fs *pflag.FlagSet, o *Overrides) (*protocol.Config, error) {
	cfg, err := Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	ApplyOverrides(cfg, fs, o)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Personal.AI order the ending
