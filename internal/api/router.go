package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Stream connection lifecycle
		r.Route("/connection", func(r chi.Router) {
			r.Get("/", s.handleConnectionState)
			r.Post("/connect", s.handleConnect)
			r.Post("/disconnect", s.handleDisconnect)
			r.Post("/reconnect", s.handleReconnect)
		})

		// Cached fleet state
		r.Route("/devices", func(r chi.Router) {
			r.Get("/status", s.handleAllStatuses)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/telemetry", s.handleDeviceTelemetry)
				r.Get("/status", s.handleDeviceStatus)
				r.Post("/subscribe", s.handleSubscribe)
				r.Post("/unsubscribe", s.handleUnsubscribe)
				r.Post("/commands", s.handleSendCommand)
				r.Post("/request-state", s.handleRequestState)
			})
		})

		r.Get("/subscriptions", s.handleSubscriptions)
		r.Get("/commands/{id}", s.handleCommandResult)

		// Activity feed: bounded in-memory ring plus the SQLite archive
		r.Get("/events", s.handleRecentEvents)
		r.Get("/events/archive", s.handleArchivedEvents)

		// Notifications
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.handleListNotifications)
			r.Put("/mark-all-read", s.handleMarkAllRead)
			r.Delete("/", s.handleClearNotifications)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/read", s.handleMarkRead)
				r.Delete("/", s.handleDeleteNotification)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"connection": s.session.State().String(),
	})
}
