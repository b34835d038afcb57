package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/authrelay/authrelay/internal/authentik"
	apperrors "github.com/authrelay/authrelay/internal/errors"
	"github.com/authrelay/authrelay/internal/metrics"
	"github.com/authrelay/authrelay/internal/observability"
	"github.com/authrelay/authrelay/internal/server/middleware"
)

// Upstream is the part of the authentik client the relay handlers call.
type Upstream interface {
	UserCount(ctx context.Context) (uint64, error)
	EventsPerMonth(ctx context.Context, action authentik.Action) ([]authentik.EventPoint, error)
}

// Relay serves the two aggregation endpoints. It is built once at wiring time
// and holds only read-only state.
type Relay struct {
	upstream Upstream
	clock    func() time.Time
}

// RelayOption customises a Relay.
type RelayOption func(*Relay)

// WithClock overrides the time source used for the events window.
func WithClock(clock func() time.Time) RelayOption {
	return func(h *Relay) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// NewRelay wires the handlers to an upstream client.
func NewRelay(upstream Upstream, opts ...RelayOption) *Relay {
	h := &Relay{
		upstream: upstream,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// UserCount handles GET /api/v3/core/users.
func (h *Relay) UserCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.upstream.UserCount(r.Context())
	if err != nil {
		metrics.RecordOperation("user_count", false)
		respondWithError(w, r, apperrors.WrapUpstream(r.Context(), err))
		return
	}

	metrics.RecordOperation("user_count", true)
	writeJSON(w, http.StatusOK, authentik.Users{
		Pagination: authentik.Pagination{Count: count},
	})
}

// EventsPerMonth handles GET /api/v3/events/events/per_month?action=...
// The action is validated before authentik is contacted.
func (h *Relay) EventsPerMonth(w http.ResponseWriter, r *http.Request) {
	action, err := authentik.ParseAction(r.URL.Query().Get("action"))
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidAction(r.Context(), err, err.Error()))
		return
	}

	now := h.clock().UnixMilli()

	points, err := h.upstream.EventsPerMonth(r.Context(), action)
	if err != nil {
		metrics.RecordOperation("events_per_month", false)
		respondWithError(w, r, apperrors.WrapUpstream(r.Context(), err))
		return
	}

	sum, ok := authentik.SumSince(points, authentik.WindowStart(now), h.logPoint(r.Context(), action))
	if !ok {
		metrics.RecordOperation("events_per_month", false)
		overflow := &authentik.UpstreamError{
			Kind:     authentik.KindMalformed,
			Endpoint: "events_per_month",
			Err:      errors.New("y_cord total overflows uint64"),
		}
		respondWithError(w, r, apperrors.WrapUpstream(r.Context(), overflow))
		return
	}

	metrics.RecordOperation("events_per_month", true)
	metrics.SetEventsWindowSum(action.String(), sum)

	writeJSON(w, http.StatusOK, []authentik.EventPoint{
		{XCoord: float64(now), YCoord: sum},
	})
}

func (h *Relay) logPoint(ctx context.Context, action authentik.Action) func(authentik.EventPoint) {
	logger := observability.ServerLogger
	if logger == nil {
		return nil
	}
	requestID := middleware.GetRequestID(ctx)
	return func(p authentik.EventPoint) {
		logger.Debug("Adding event point",
			zap.String("action", action.String()),
			zap.Float64("x_cord", p.XCoord),
			zap.Uint64("y_cord", p.YCoord),
			zap.String("request_id", requestID))
	}
}
