package protocol

import "time"

// Config represents the root nightowl configuration file.
// The top-level console keys match the historical nightowl_config.yml.
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`

	LogFile         string `yaml:"log_file"`
	IntervalMinutes int    `yaml:"interval_minutes"`
	Threshold       *int   `yaml:"threshold"` // nil means unset

	PowerOff      PowerOffConfig      `yaml:"power_off"`
	StatusSocket  *string             `yaml:"status_socket"` // nil means unset, "" disables
	Observability ObservabilityConfig `yaml:"observability"`
}

type PowerOffConfig struct {
	Enabled      *bool    `yaml:"enabled"`
	DelayMinutes *int     `yaml:"delay_minutes"`
	Command      []string `yaml:"command"` // Delay is appended as "+<minutes>"
}

type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Addr returns host:port for the remote console.
func (c *Config) Addr() string {
	return joinHostPort(c.Host, c.Port)
}

// Interval returns the idle sampling period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// IdleThreshold returns the configured threshold, zero when unset.
func (c *Config) IdleThreshold() int {
	if c.Threshold == nil {
		return 0
	}
	return *c.Threshold
}

// PowerOffEnabled reports whether the host power-off should be scheduled.
func (c *Config) PowerOffEnabled() bool {
	return c.PowerOff.Enabled == nil || *c.PowerOff.Enabled
}

// PowerOffDelay returns the delay between server stop and host power-off.
func (c *Config) PowerOffDelay() time.Duration {
	if c.PowerOff.DelayMinutes == nil {
		return 0
	}
	return time.Duration(*c.PowerOff.DelayMinutes) * time.Minute
}

// StatusSocketPath returns the status socket path, "" when disabled.
func (c *Config) StatusSocketPath() string {
	if c.StatusSocket == nil {
		return ""
	}
	return *c.StatusSocket
}

// Personal.AI order the ending
