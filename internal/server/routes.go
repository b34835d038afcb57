package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"go.uber.org/zap"

	"github.com/authrelay/authrelay/internal/observability"
	"github.com/authrelay/authrelay/internal/server/handlers"
)

// Relay routes, kept identical to the authentik paths they aggregate.
const (
	UsersPath          = "/api/v3/core/users"
	EventsPerMonthPath = "/api/v3/events/events/per_month"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	if s.relay != nil {
		s.router.Get(UsersPath, s.relay.UserCount)
		s.router.Get(EventsPerMonthPath, s.relay.EventsPerMonth)
	}

	// Health endpoints
	s.router.Get("/health", s.health.HealthHandler)
	s.router.Get("/health/live", s.health.LivenessHandler)
	s.router.Get("/health/ready", s.health.ReadinessHandler)
	s.router.Get("/health/startup", s.health.StartupHandler)

	s.router.Get("/version", handlers.VersionHandler(s.build))

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	s.registerAdminEndpoint()
}

// registerAdminEndpoint registers the admin signal endpoint when a token is set
func (s *Server) registerAdminEndpoint() {
	logger := observability.ServerLogger

	if s.adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no AUTHRELAY_ADMIN_TOKEN set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.adminToken,
		RateLimit: 10, // requests per minute
		RateBurst: 5,
		Manager:   nil, // default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
