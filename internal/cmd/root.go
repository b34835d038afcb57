package cmd

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/authrelay/authrelay/internal/config"
	apperrors "github.com/authrelay/authrelay/internal/errors"
	"github.com/authrelay/authrelay/internal/observability"
)

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   config.AppName,
	Short: "Relay authentik user and login statistics to local dashboards",
	Long: `authrelay serves two read-only aggregation endpoints backed by the authentik API:

  GET /api/v3/core/users                              user count
  GET /api/v3/events/events/per_month?action=login    logins in the last 24h

AUTHENTIK_BASE_URL and AUTHENTIK_API_KEY are required, either in the
environment or in config.toml.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Config loading and one-shot commands must not emit metrics; serve
	// installs the real telemetry system later.
	observability.DisableTelemetry()

	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: config.toml in ., ./config or $XDG_CONFIG_HOME/authrelay)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	observability.InitCLILogger(config.AppName, verbose)

	v := viper.GetViper()
	config.SetDefaults(v, versionInfo.Version)
	if err := config.BindEnv(v); err != nil {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Failed to bind environment", err)
	}
	config.ConfigureSearch(v, cfgFile)

	found, err := config.ReadFile(v)
	switch {
	case err != nil:
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Error reading config file",
			apperrors.WrapConfigInvalid(context.Background(), err, "config file could not be parsed"))
	case found:
		observability.CLILogger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	default:
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	}
}

// resolveConfig decodes and validates the effective configuration, mapping
// failures onto error envelopes.
func resolveConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v)
	if err == nil {
		return cfg, nil
	}
	return nil, configEnvelope(err)
}

func configEnvelope(err error) *errors.ErrorEnvelope {
	var missing *config.MissingKeysError
	if stderrors.As(err, &missing) {
		return apperrors.NewConfigMissingError(
			fmt.Sprintf("missing required configuration: set %s", envNames(missing.Keys)),
			missing.Keys)
	}
	return apperrors.WrapConfigInvalid(context.Background(), err, err.Error())
}

func envNames(keys []string) string {
	names := ""
	for i, key := range keys {
		if i > 0 {
			names += ", "
		}
		switch key {
		case config.KeyBaseURL:
			names += config.EnvBaseURL
		case config.KeyAPIKey:
			names += config.EnvAPIKey
		default:
			names += key
		}
	}
	return names
}

// loadConfig resolves the configuration or exits with ExitConfigInvalid.
func loadConfig() *config.Config {
	cfg, err := resolveConfig(viper.GetViper())
	if err != nil {
		msg := "Configuration is incomplete"
		if envelope, ok := err.(*errors.ErrorEnvelope); ok {
			msg += ": " + envelope.Message
		}
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, msg, err)
	}
	return cfg
}
