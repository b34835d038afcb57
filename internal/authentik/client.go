// Package authentik is a narrow client for the two authentik API endpoints the
// relay aggregates: the user list count and the events-per-month series.
package authentik

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/authrelay/authrelay/internal/metrics"
)

const (
	// DefaultTimeout bounds every outbound call when no timeout is configured.
	DefaultTimeout = 10 * time.Second

	usersPath  = "api/v3/core/users/"
	eventsPath = "api/v3/events/events/per_month/"

	endpointUsers  = "users"
	endpointEvents = "events_per_month"

	maxBodyBytes = 4 << 20
)

// Client performs bearer-authenticated GETs against an authentik instance.
// A Client holds no mutable state and is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
}

// Option customises client construction.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithTimeout sets the per-call timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header on outbound requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// NewClient builds a client for the instance at baseURL. Upstream paths are
// appended to baseURL, so a missing trailing slash is added here.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(baseURL)
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid authentik base url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid authentik base url %q: scheme must be http or https", trimmed)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("invalid authentik base url %q: missing host", trimmed)
	}
	if !strings.HasSuffix(trimmed, "/") {
		trimmed += "/"
	}

	c := &Client{
		baseURL:    trimmed,
		apiKey:     apiKey,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised base URL (always ending in "/").
func (c *Client) BaseURL() string {
	return c.baseURL
}

// UserCount returns pagination.count from GET api/v3/core/users/.
func (c *Client) UserCount(ctx context.Context) (uint64, error) {
	var payload usersPayload
	if err := c.getJSON(ctx, endpointUsers, c.baseURL+usersPath, &payload); err != nil {
		return 0, err
	}
	if payload.Pagination == nil {
		return 0, malformed(endpointUsers, errors.New("missing pagination object"))
	}
	if payload.Pagination.Count == nil {
		return 0, malformed(endpointUsers, errors.New("missing pagination.count"))
	}
	return *payload.Pagination.Count, nil
}

// EventsPerMonth returns the raw event series for action.
func (c *Client) EventsPerMonth(ctx context.Context, action Action) ([]EventPoint, error) {
	query := url.Values{}
	query.Set("action", action.String())
	query.Set("query", "{}")
	target := c.baseURL + eventsPath + "?" + query.Encode()

	var payload *[]eventPointPayload
	if err := c.getJSON(ctx, endpointEvents, target, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, malformed(endpointEvents, errors.New("expected a list, got null"))
	}

	points := make([]EventPoint, 0, len(*payload))
	for i, raw := range *payload {
		if raw.XCoord == nil || raw.YCoord == nil {
			return nil, malformed(endpointEvents, fmt.Errorf("point %d is missing x_cord or y_cord", i))
		}
		points = append(points, EventPoint{XCoord: *raw.XCoord, YCoord: *raw.YCoord})
	}
	return points, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, target string, out any) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordUpstreamCall(endpoint, upstreamOutcome(err), time.Since(start))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &UpstreamError{Kind: KindUnreachable, Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Kind: KindUnreachable, Endpoint: endpoint, Timeout: isTimeout(ctx, err), Err: err}
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &UpstreamError{Kind: KindStatus, Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		if ctx.Err() != nil {
			return &UpstreamError{Kind: KindUnreachable, Endpoint: endpoint, Timeout: isTimeout(ctx, err), Err: err}
		}
		return malformed(endpoint, err)
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func upstreamOutcome(err error) string {
	if err == nil {
		return "success"
	}
	if upstreamErr, ok := AsUpstreamError(err); ok {
		if upstreamErr.Timeout {
			return "timeout"
		}
		return string(upstreamErr.Kind)
	}
	return "error"
}
