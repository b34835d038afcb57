package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/authrelay/authrelay/internal/observability"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{
		"trace":   "TRACE",
		"debug":   "DEBUG",
		"DEBUG":   "DEBUG",
		"info":    "INFO",
		"":        "INFO",
		"warning": "WARN",
		"warn":    "WARN",
		" error ": "ERROR",
		"verbose": "INFO",
	}

	for in, want := range cases {
		assert.Equal(t, want, observability.ParseLogLevel(in), "level %q", in)
	}
}

func TestCLILogger(t *testing.T) {
	observability.InitCLILogger("authrelay-test", true)
	require.NotNil(t, observability.CLILogger)

	observability.CLILogger.Debug("cli logger ready", zap.String("test", "value"))
}

func TestServerLoggerConfig(t *testing.T) {
	cfg := observability.ServerLoggerConfig("authrelay-test", "debug", "")

	assert.Equal(t, logging.ProfileStructured, cfg.Profile)
	assert.Equal(t, "DEBUG", cfg.DefaultLevel)
	assert.Equal(t, "production", cfg.Environment)
	require.Len(t, cfg.Sinks, 1)
	assert.Equal(t, "stderr", cfg.Sinks[0].Console.Stream)

	logger, err := logging.New(cfg)
	require.NoError(t, err)
	logger.Info("structured logger ready",
		zap.String("upstream", "authentik"),
		zap.Uint64("count", 3))
}

func TestInitServerLogger(t *testing.T) {
	observability.InitServerLogger("authrelay-test", "info", "test")
	require.NotNil(t, observability.ServerLogger)
}
