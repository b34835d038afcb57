package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authrelay/authrelay/internal/authentik"
	"github.com/authrelay/authrelay/internal/config"
	apperrors "github.com/authrelay/authrelay/internal/errors"
	"github.com/authrelay/authrelay/internal/server/handlers"
)

type fakeAuthentik struct {
	calls   atomic.Int32
	failing atomic.Bool
	server  *httptest.Server
}

func newFakeAuthentik(t *testing.T) *fakeAuthentik {
	t.Helper()

	fake := &fakeAuthentik{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/core/users/", func(w http.ResponseWriter, r *http.Request) {
		fake.calls.Add(1)
		if fake.failing.Load() {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = fmt.Fprint(w, `{"pagination":{"count":42,"next":0},"results":[]}`)
	})
	mux.HandleFunc("/api/v3/events/events/per_month/", func(w http.ResponseWriter, r *http.Request) {
		fake.calls.Add(1)
		now := time.Now().UnixMilli()
		_, _ = fmt.Fprintf(w, `[{"x_cord":%d,"y_cord":5},{"x_cord":%d,"y_cord":3},{"x_cord":%d,"y_cord":7}]`,
			now-48*time.Hour.Milliseconds(), now-time.Hour.Milliseconds(), now)
	})

	fake.server = httptest.NewServer(mux)
	t.Cleanup(fake.server.Close)
	return fake
}

func newTestServer(t *testing.T, upstream *fakeAuthentik, opts ...Option) *Server {
	t.Helper()
	t.Cleanup(handlers.ResetHTTPErrorResponder)

	var relay *handlers.Relay
	if upstream != nil {
		client, err := authentik.NewClient(upstream.server.URL, "test-key",
			authentik.WithHTTPClient(upstream.server.Client()),
			authentik.WithTimeout(2*time.Second))
		require.NoError(t, err)
		relay = handlers.NewRelay(client)
	}

	cfg := config.ServerConfig{Host: "127.0.0.1", Port: 0}
	return New(cfg, relay, nil, handlers.BuildInfo{Name: "authrelay", Version: "test"}, opts...)
}

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestServerUsesStandardErrorHandlers(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := serve(srv, http.MethodGet, "/does-not-exist")

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.Equal(t, rec.Header().Get("X-Request-ID"), body.Error.RequestID)
}

func TestServerRejectsWrongMethodOnRelayRoutes(t *testing.T) {
	fake := newFakeAuthentik(t)
	srv := newTestServer(t, fake)

	rec := serve(srv, http.MethodPost, UsersPath)

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, rec).Error.Code)
	assert.Zero(t, fake.calls.Load())
}

func TestServerRelaysUserCount(t *testing.T) {
	srv := newTestServer(t, newFakeAuthentik(t))

	rec := serve(srv, http.MethodGet, UsersPath)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"pagination":{"count":42}}`, rec.Body.String())
}

func TestServerRelaysEventsWindowSum(t *testing.T) {
	srv := newTestServer(t, newFakeAuthentik(t))

	before := time.Now().UnixMilli()
	rec := serve(srv, http.MethodGet, EventsPerMonthPath+"?action=login")
	after := time.Now().UnixMilli()

	require.Equal(t, http.StatusOK, rec.Code)

	var body []authentik.EventPoint
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body, 1)
	assert.Equal(t, uint64(10), body[0].YCoord)
	assert.GreaterOrEqual(t, body[0].XCoord, float64(before))
	assert.LessOrEqual(t, body[0].XCoord, float64(after))
}

func TestServerInvalidActionMakesNoOutboundCall(t *testing.T) {
	fake := newFakeAuthentik(t)
	srv := newTestServer(t, fake)

	for _, target := range []string{EventsPerMonthPath, EventsPerMonthPath + "?action=logout"} {
		rec := serve(srv, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ACTION", decodeError(t, rec).Error.Code)
	}
	assert.Zero(t, fake.calls.Load())
}

func TestServerKeepsServingAfterUpstreamFailure(t *testing.T) {
	fake := newFakeAuthentik(t)
	srv := newTestServer(t, fake)

	fake.failing.Store(true)
	rec := serve(srv, http.MethodGet, UsersPath)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeError(t, rec)
	assert.Equal(t, "UPSTREAM_STATUS", body.Error.Code)
	assert.EqualValues(t, http.StatusServiceUnavailable, body.Error.Details["upstream_status"])

	fake.failing.Store(false)
	rec = serve(srv, http.MethodGet, UsersPath)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServerUnreachableUpstream(t *testing.T) {
	fake := newFakeAuthentik(t)
	srv := newTestServer(t, fake)
	fake.server.Close()

	rec := serve(srv, http.MethodGet, UsersPath)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "UPSTREAM_UNREACHABLE", decodeError(t, rec).Error.Code)
}

func TestServerExposesHealthAndVersion(t *testing.T) {
	srv := newTestServer(t, nil)

	for _, path := range []string{"/health", "/health/live", "/health/ready", "/health/startup", "/version"} {
		rec := serve(srv, http.MethodGet, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestAdminEndpointRequiresToken(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := serve(srv, http.MethodPost, "/admin/signal")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	srv = newTestServer(t, nil, WithAdminToken("admin-secret"))
	rec = serve(srv, http.MethodPost, "/admin/signal")
	assert.NotEqual(t, http.StatusNotFound, rec.Code)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}
