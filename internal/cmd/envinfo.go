package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/authrelay/authrelay/internal/config"
	"github.com/authrelay/authrelay/internal/observability"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display version, runtime and relay configuration information.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		version := crucible.GetVersion()

		log.Info("=== authrelay Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + config.AppName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info("")

		log.Info("Environment:")
		for _, name := range []string{config.EnvBaseURL, config.EnvAPIKey, adminTokenEnv} {
			log.Info(fmt.Sprintf("  %-22s %s", name+":", presence(os.Getenv(name))))
		}
		log.Info("")

		cfg, err := resolveConfig(viper.GetViper())
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Configuration:")
		log.Info("  Config File:      "+orNone(viper.ConfigFileUsed()), zap.String("config_file", viper.ConfigFileUsed()))
		log.Info("  authentik URL:    "+cfg.AuthentikBaseURL, zap.String("authentik_base_url", cfg.AuthentikBaseURL))
		log.Info("  Upstream Timeout: "+cfg.Upstream.Timeout.String(), zap.Duration("upstream_timeout", cfg.Upstream.Timeout))
		log.Info(fmt.Sprintf("  Server:           %s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info("  Log Level:        "+cfg.Logging.Level, zap.String("log_level", cfg.Logging.Level))
		log.Info(fmt.Sprintf("  Metrics:          enabled=%t port=%d", cfg.Metrics.Enabled, cfg.Metrics.Port))
	},
}

func presence(value string) string {
	if value == "" {
		return "not set"
	}
	return "set"
}

func orNone(value string) string {
	if value == "" {
		return "(none)"
	}
	return value
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
