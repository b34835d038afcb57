// Package config loads the relay configuration from an optional config file and
// the environment using viper, then decodes it into typed structs.
//
// Precedence (highest first): flags bound by the CLI, environment variables,
// the config file, defaults. AUTHENTIK_BASE_URL and AUTHENTIK_API_KEY are read
// without a prefix; every other key uses AUTHRELAY_ with dots mapped to
// underscores (server.port -> AUTHRELAY_SERVER_PORT).
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	// AppName names the XDG config directory and the env prefix.
	AppName = "authrelay"

	// EnvPrefix prefixes every ambient environment override.
	EnvPrefix = "AUTHRELAY"

	// ConfigName is the config file base name searched for when --config is absent.
	ConfigName = "config"

	KeyBaseURL = "authentik_base_url"
	KeyAPIKey  = "authentik_api_key"

	EnvBaseURL = "AUTHENTIK_BASE_URL"
	EnvAPIKey  = "AUTHENTIK_API_KEY"
)

// Defaults
const (
	DefaultHost            = "localhost"
	DefaultPort            = 8000
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
	DefaultMetricsPort     = 9090
)

// MissingKeysError reports required keys absent from every source.
type MissingKeysError struct {
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Keys, ", "))
}

// InvalidValueError reports a key whose value cannot be used.
type InvalidValueError struct {
	Key    string
	Reason string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Key, e.Reason)
}

// SetDefaults registers defaults on v. version feeds the default User-Agent.
func SetDefaults(v *viper.Viper, version string) {
	userAgent := AppName
	if strings.TrimSpace(version) != "" {
		userAgent = AppName + "/" + version
	}

	// Upstream defaults
	v.SetDefault("upstream.timeout", DefaultUpstreamTimeout.String())
	v.SetDefault("upstream.user_agent", userAgent)

	// Server defaults
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_timeout", DefaultReadTimeout.String())
	v.SetDefault("server.write_timeout", DefaultWriteTimeout.String())
	v.SetDefault("server.idle_timeout", DefaultIdleTimeout.String())
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout.String())

	// Logging defaults
	v.SetDefault("logging.level", DefaultLogLevel)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", DefaultMetricsPort)
}

// BindEnv wires environment lookups into v. The authentik keys keep their
// historical unprefixed names.
func BindEnv(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv(KeyBaseURL, EnvBaseURL); err != nil {
		return err
	}
	return v.BindEnv(KeyAPIKey, EnvAPIKey)
}

// ConfigureSearch points v at an explicit file, or at config.toml (any
// viper-supported extension) in the working directory, ./config and the XDG
// app config dir.
func ConfigureSearch(v *viper.Viper, explicitFile string) {
	if explicitFile != "" {
		v.SetConfigFile(explicitFile)
		return
	}

	v.SetConfigName(ConfigName)
	v.AddConfigPath(".")
	v.AddConfigPath(filepath.Join(".", "config"))
	if dir := gfconfig.GetAppConfigDir(AppName); strings.TrimSpace(dir) != "" {
		v.AddConfigPath(dir)
	}
}

// ReadFile reads the configured file. A missing file in search mode is not an
// error; found reports whether a file was read.
func ReadFile(v *viper.Viper) (found bool, err error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// Load decodes v into a Config and validates it. Callers set defaults, bind
// env and read the file first.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.TextUnmarshallerHookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings(v)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// settings collects AllSettings and makes sure the explicitly bound
// authentik keys are present even when only the environment supplies them.
func settings(v *viper.Viper) map[string]any {
	all := v.AllSettings()
	for _, key := range []string{KeyBaseURL, KeyAPIKey} {
		if _, ok := all[key]; !ok && v.IsSet(key) {
			all[key] = v.Get(key)
		}
	}
	return all
}

func (c *Config) normalize() error {
	c.AuthentikBaseURL = strings.TrimSpace(c.AuthentikBaseURL)
	c.AuthentikAPIKey = strings.TrimSpace(c.AuthentikAPIKey)

	var missing []string
	if c.AuthentikBaseURL == "" {
		missing = append(missing, KeyBaseURL)
	}
	if c.AuthentikAPIKey == "" {
		missing = append(missing, KeyAPIKey)
	}
	if len(missing) > 0 {
		return &MissingKeysError{Keys: missing}
	}

	baseURL, err := NormalizeBaseURL(c.AuthentikBaseURL)
	if err != nil {
		return err
	}
	c.AuthentikBaseURL = baseURL

	if c.Upstream.Timeout <= 0 {
		return &InvalidValueError{Key: "upstream.timeout", Reason: "must be positive"}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &InvalidValueError{Key: "server.port", Reason: fmt.Sprintf("%d is out of range", c.Server.Port)}
	}
	return nil
}

// NormalizeBaseURL checks for an http(s) URL with a host and appends the
// trailing slash the upstream paths are joined onto.
func NormalizeBaseURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", &InvalidValueError{Key: KeyBaseURL, Reason: err.Error()}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", &InvalidValueError{Key: KeyBaseURL, Reason: "scheme must be http or https"}
	}
	if parsed.Host == "" {
		return "", &InvalidValueError{Key: KeyBaseURL, Reason: "host is required"}
	}
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	return raw, nil
}
