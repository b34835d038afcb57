package cmd

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	gferrors "github.com/fulmenhq/gofulmen/errors"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/authrelay/authrelay/internal/authentik"
	"github.com/authrelay/authrelay/internal/config"
)

type stubUpstream struct {
	count  uint64
	points []authentik.EventPoint
	err    error
}

func (s stubUpstream) UserCount(ctx context.Context) (uint64, error) {
	return s.count, s.err
}

func (s stubUpstream) EventsPerMonth(ctx context.Context, action authentik.Action) ([]authentik.EventPoint, error) {
	return s.points, s.err
}

func newCmdViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	config.SetDefaults(v, "test")
	require.NoError(t, config.BindEnv(v))
	return v
}

func TestResolveConfigMissingKeys(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "")
	t.Setenv(config.EnvAPIKey, "")

	_, err := resolveConfig(newCmdViper(t))
	require.Error(t, err)

	envelope, ok := err.(*gferrors.ErrorEnvelope)
	require.True(t, ok, "expected envelope, got %T", err)
	assert.Equal(t, "CONFIG_MISSING", envelope.Code)
	assert.Contains(t, envelope.Message, "AUTHENTIK_BASE_URL")
	assert.Contains(t, envelope.Message, "AUTHENTIK_API_KEY")
	assert.Equal(t, []string{config.KeyBaseURL, config.KeyAPIKey}, envelope.Details["missing_keys"])
}

func TestResolveConfigInvalidBaseURL(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "auth.example.com")
	t.Setenv(config.EnvAPIKey, "key")

	_, err := resolveConfig(newCmdViper(t))

	envelope, ok := err.(*gferrors.ErrorEnvelope)
	require.True(t, ok, "expected envelope, got %T", err)
	assert.Equal(t, "CONFIG_INVALID", envelope.Code)
}

func TestResolveConfigSuccess(t *testing.T) {
	t.Setenv(config.EnvBaseURL, "https://auth.example.com")
	t.Setenv(config.EnvAPIKey, "key")

	cfg, err := resolveConfig(newCmdViper(t))
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/", cfg.AuthentikBaseURL)
	assert.Equal(t, "authrelay/test", cfg.Upstream.UserAgent)

	client, err := newUpstreamClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.com/", client.BaseURL())
}

func TestWindowedEvents(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	t0 := float64(now.UnixMilli())
	upstream := stubUpstream{points: []authentik.EventPoint{
		{XCoord: t0 - 90_000_000, YCoord: 5},
		{XCoord: t0 - 50_000, YCoord: 3},
		{XCoord: t0, YCoord: 7},
	}}

	result, err := windowedEvents(context.Background(), upstream, authentik.ActionLogin, now)
	require.NoError(t, err)

	assert.Equal(t, uint64(10), result.Sum)
	assert.Equal(t, 3, result.Points)
	assert.Equal(t, 2, result.Included)
	assert.Equal(t, now.UnixMilli(), result.Now.UnixMilli())
	assert.Equal(t, now.Add(-24*time.Hour).UnixMilli(), result.WindowStart.UnixMilli())
}

func TestWindowedEventsPropagatesErrors(t *testing.T) {
	upstreamErr := &authentik.UpstreamError{Kind: authentik.KindStatus, Endpoint: "events_per_month", StatusCode: 500}

	_, err := windowedEvents(context.Background(), stubUpstream{err: upstreamErr}, authentik.ActionLogin, time.Now())
	assert.ErrorIs(t, err, upstreamErr)

	overflow := stubUpstream{points: []authentik.EventPoint{
		{XCoord: 0, YCoord: ^uint64(0)},
		{XCoord: 0, YCoord: 1},
	}}
	_, err = windowedEvents(context.Background(), overflow, authentik.ActionLogin, time.UnixMilli(0))
	upstream, ok := authentik.AsUpstreamError(err)
	require.True(t, ok)
	assert.Equal(t, authentik.KindMalformed, upstream.Kind)
}

func TestCheckUpstream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, checkUpstream(context.Background(), stubUpstream{count: 12}, &buf))
	assert.Equal(t, "authentik reachable: 12 users\n", buf.String())

	err := checkUpstream(context.Background(), stubUpstream{err: errors.New("refused")}, &buf)
	assert.EqualError(t, err, "refused")
}

func TestWriteEffectiveConfigRedactsAPIKey(t *testing.T) {
	cfg := &config.Config{
		AuthentikBaseURL: "https://auth.example.com/",
		AuthentikAPIKey:  "super-secret",
		Upstream:         config.UpstreamConfig{Timeout: 10 * time.Second},
		Server:           config.ServerConfig{Host: "localhost", Port: 8000},
	}

	var buf bytes.Buffer
	require.NoError(t, writeEffectiveConfig(&buf, cfg))
	assert.NotContains(t, buf.String(), "super-secret")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "********", decoded["authentik_api_key"])
	assert.Equal(t, "https://auth.example.com/", decoded["authentik_base_url"])

	upstream, ok := decoded["upstream"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "10s", upstream["timeout"])
}

func TestWriteVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("", "", "") })

	var buf bytes.Buffer
	require.NoError(t, writeVersion(&buf, false))
	assert.Equal(t, "authrelay 1.2.3\n", buf.String())

	buf.Reset()
	require.NoError(t, writeVersion(&buf, true))
	assert.Contains(t, buf.String(), "Commit: abc123")
	assert.Contains(t, buf.String(), "Gofulmen:")
}

func TestExitWithCodeUsesSemanticCode(t *testing.T) {
	var got int
	original := osExit
	osExit = func(code int) { got = code }
	t.Cleanup(func() { osExit = original })

	ExitWithCode(nil, foundry.ExitConfigInvalid, "Configuration is incomplete", errors.New("missing"))
	assert.NotZero(t, got)
}

func TestWriteFatal(t *testing.T) {
	var buf bytes.Buffer
	writeFatal(&buf, "boom", nil)
	assert.Equal(t, "FATAL: boom\n", buf.String())

	buf.Reset()
	envelope := gferrors.NewErrorEnvelope("CONFIG_MISSING", "set AUTHENTIK_API_KEY").WithCorrelationID("cid-1")
	writeFatal(&buf, "Configuration is incomplete", envelope)
	assert.True(t, strings.HasPrefix(buf.String(), "FATAL: Configuration is incomplete [CONFIG_MISSING]"))
	assert.Contains(t, buf.String(), "cid-1")
}
