package config

import (
	"time"
)

// Config represents the complete relay configuration. It is built once at
// process start and handed to the components that need it; nothing mutates it
// afterwards.
type Config struct {
	// AuthentikBaseURL is the authentik instance root, always ending in "/".
	AuthentikBaseURL string `mapstructure:"authentik_base_url"`

	// AuthentikAPIKey is sent as a bearer token on every upstream call.
	AuthentikAPIKey string `mapstructure:"authentik_api_key"`

	Upstream UpstreamConfig `mapstructure:"upstream"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// UpstreamConfig controls outbound calls to authentik
type UpstreamConfig struct {
	// Timeout bounds each outbound call, including reading the body
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	// Enabled controls whether the exporter is started
	Enabled bool `mapstructure:"enabled"`

	// Port is the dedicated exporter port; /metrics on the main server proxies it
	Port int `mapstructure:"port"`
}

// Redacted returns a copy safe to print. The API key is masked.
func (c Config) Redacted() Config {
	out := c
	if out.AuthentikAPIKey != "" {
		out.AuthentikAPIKey = redactedValue
	}
	return out
}

const redactedValue = "********"

// Settings renders the config as the nested key map used in config files,
// with durations in their string form.
func (c Config) Settings() map[string]any {
	return map[string]any{
		"authentik_base_url": c.AuthentikBaseURL,
		"authentik_api_key":  c.AuthentikAPIKey,
		"upstream": map[string]any{
			"timeout":    c.Upstream.Timeout.String(),
			"user_agent": c.Upstream.UserAgent,
		},
		"server": map[string]any{
			"host":             c.Server.Host,
			"port":             c.Server.Port,
			"read_timeout":     c.Server.ReadTimeout.String(),
			"write_timeout":    c.Server.WriteTimeout.String(),
			"idle_timeout":     c.Server.IdleTimeout.String(),
			"shutdown_timeout": c.Server.ShutdownTimeout.String(),
		},
		"logging": map[string]any{
			"level": c.Logging.Level,
		},
		"metrics": map[string]any{
			"enabled": c.Metrics.Enabled,
			"port":    c.Metrics.Port,
		},
	}
}
