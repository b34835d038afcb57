package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	errwrap "github.com/authrelay/authrelay/internal/errors"
	"github.com/authrelay/authrelay/internal/observability"
	"github.com/authrelay/authrelay/internal/server/handlers"
)

var healthUpstream bool

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long: `Run a self-health check: version information, logger and configuration.
With --upstream, also fetch the user count from authentik.`,
	Run: func(cmd *cobra.Command, args []string) {
		observability.CLILogger.Info("Running health check...")

		if versionInfo.Version == "" {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Version information missing",
				errwrap.NewConfigInvalidError("Version information missing"))
			return
		}
		observability.CLILogger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		observability.CLILogger.Info("✅ Version information available")

		cfg, err := resolveConfig(viper.GetViper())
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Configuration check failed", err)
			return
		}
		observability.CLILogger.Info("✅ Configuration loaded")

		if healthUpstream {
			client, err := newUpstreamClient(cfg)
			if err != nil {
				ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid authentik configuration", err)
				return
			}
			if err := checkUpstream(cmd.Context(), client, cmd.OutOrStdout()); err != nil {
				ExitWithCode(observability.CLILogger, foundry.ExitFailure, "authentik check failed",
					errwrap.WrapUpstream(cmd.Context(), err))
				return
			}
			observability.CLILogger.Info("✅ authentik reachable")
		}

		observability.CLILogger.Info("✅ All health checks passed")
	},
}

// checkUpstream performs one live user-count call.
func checkUpstream(ctx context.Context, upstream handlers.Upstream, w io.Writer) error {
	count, err := upstream.UserCount(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "authentik reachable: %d users\n", count)
	return err
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVar(&healthUpstream, "upstream", false, "also call authentik with the configured credentials")
}
