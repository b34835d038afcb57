package metrics

import (
	"time"

	"github.com/authrelay/authrelay/internal/observability"
)

// Relay metrics following Prometheus conventions
const (
	UpstreamCallsTotal   = "authentik_upstream_calls_total"
	UpstreamCallDuration = "authentik_upstream_call_duration_ms"
	RelayOperationsTotal = "relay_operations_total"
	EventsWindowSum      = "relay_events_window_sum"
	HealthCheckTotal     = "app_health_check_total"
	HealthCheckDuration  = "app_health_check_duration_ms"
	ServerStartTime      = "app_server_start_time_seconds"
)

// RecordUpstreamCall records one outbound authentik call.
// outcome is "success", "timeout", "unreachable", "status" or "malformed".
func RecordUpstreamCall(endpoint, outcome string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}

	_ = observability.TelemetrySystem.Counter(
		UpstreamCallsTotal,
		1,
		map[string]string{
			"endpoint": endpoint,
			"outcome":  outcome,
		},
	)
	_ = observability.TelemetrySystem.Histogram(
		UpstreamCallDuration,
		duration,
		map[string]string{
			"endpoint": endpoint,
		},
	)
}

// RecordOperation records a relay operation with status
func RecordOperation(operation string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			RelayOperationsTotal,
			1,
			map[string]string{
				"operation": operation,
				"status":    status,
			},
		)
	}
}

// SetEventsWindowSum publishes the last computed 24h sum for an action.
func SetEventsWindowSum(action string, sum uint64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(
			EventsWindowSum,
			float64(sum),
			map[string]string{
				"action": action,
			},
		)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}
