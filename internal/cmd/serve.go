package cmd

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/authrelay/authrelay/internal/authentik"
	"github.com/authrelay/authrelay/internal/config"
	errwrap "github.com/authrelay/authrelay/internal/errors"
	"github.com/authrelay/authrelay/internal/metrics"
	"github.com/authrelay/authrelay/internal/observability"
	"github.com/authrelay/authrelay/internal/server"
	"github.com/authrelay/authrelay/internal/server/handlers"
)

const adminTokenEnv = config.EnvPrefix + "_ADMIN_TOKEN"

var (
	serverPort int
	serverHost string
)

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// configHealthChecker re-validates the configuration captured at startup.
type configHealthChecker struct {
	cfg *config.Config
}

func (c configHealthChecker) CheckHealth(ctx context.Context) error {
	if c.cfg == nil {
		return errwrap.NewConfigMissingError("configuration not loaded", nil)
	}
	if _, err := config.NormalizeBaseURL(c.cfg.AuthentikBaseURL); err != nil {
		return errwrap.NewConfigInvalidError(err.Error())
	}
	if c.cfg.AuthentikAPIKey == "" {
		return errwrap.NewConfigMissingError("authentik API key not set", []string{config.KeyAPIKey})
	}
	return nil
}

// newUpstreamClient builds the authentik client from the loaded config.
func newUpstreamClient(cfg *config.Config) (*authentik.Client, error) {
	return authentik.NewClient(cfg.AuthentikBaseURL, cfg.AuthentikAPIKey,
		authentik.WithTimeout(cfg.Upstream.Timeout),
		authentik.WithUserAgent(cfg.Upstream.UserAgent))
}

func buildInfo() handlers.BuildInfo {
	return handlers.BuildInfo{
		Name:      config.AppName,
		Version:   versionInfo.Version,
		Commit:    versionInfo.Commit,
		BuildDate: versionInfo.BuildDate,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the relay HTTP server",
	Long: `Start the relay HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Re-read and validate the config file (restart to apply)

The server will cleanly shut down the HTTP server and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		observability.InitServerLogger(config.AppName, cfg.Logging.Level, os.Getenv(config.EnvPrefix+"_ENV"))

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics(config.AppName, cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics",
					zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}
		}

		client, err := newUpstreamClient(cfg)
		if err != nil {
			return errwrap.WrapConfigInvalid(cmd.Context(), err, "invalid authentik configuration")
		}

		observability.ServerLogger.Info("Initializing relay",
			zap.String("service", config.AppName),
			zap.String("version", versionInfo.Version),
			zap.String("authentik_base_url", client.BaseURL()),
			zap.Duration("upstream_timeout", cfg.Upstream.Timeout),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
			zap.Int("metrics_port", observability.GetMetricsPort()))

		hm := handlers.NewHealthManager(versionInfo.Version)
		hm.RegisterChecker("config", configHealthChecker{cfg: cfg})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		srv := server.New(cfg.Server, handlers.NewRelay(client), hm, buildInfo(),
			server.WithAdminToken(os.Getenv(adminTokenEnv)))

		metrics.SetServerStartTime(time.Now().Unix())

		// Shutdown handlers run LIFO: the HTTP server stops before the logger flushes.
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// The running relay keeps the config it started with; SIGHUP only
		// reports whether the file on disk would load.
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: validating config file")

			if _, err := config.ReadFile(viper.GetViper()); err != nil {
				observability.ServerLogger.Error("Failed to re-read config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
			}
			if _, err := resolveConfig(viper.GetViper()); err != nil {
				observability.ServerLogger.Warn("Config file no longer validates", zap.Error(err))
				return err
			}

			observability.ServerLogger.Info("Config file is valid; restart to apply changes",
				zap.String("file", viper.ConfigFileUsed()))
			return nil
		})

		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		errChan := make(chan error, 1)
		go func() {
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", config.DefaultHost, "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", config.DefaultPort, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
