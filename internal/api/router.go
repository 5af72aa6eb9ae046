package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/snagbot/snagd/internal/api/handler"
	mw "github.com/snagbot/snagd/internal/api/middleware"
	"github.com/snagbot/snagd/internal/metrics"
	"github.com/snagbot/snagd/internal/notify"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	downloadHandler *handler.DownloadHandler,
	healthHandler *handler.HealthHandler,
	hub *notify.Hub,
	m *metrics.Metrics,
	apiKey string,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //ready -> /ready)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics(m))
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS for browser dashboards
	r.Use(mw.CORS)

	// Health endpoints (no auth)
	r.Get("/health", healthHandler.Live)
	r.Get("/ready", healthHandler.Ready)

	// Prometheus scrape endpoint (no auth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Live progress feed (no auth - carries no user input, read only)
	r.Get("/ws", hub.Handler)

	// API v1 (authenticated)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(apiKey))

		// System stats
		r.Get("/stats", healthHandler.Stats)

		// Download submission and queue state
		r.Post("/downloads", downloadHandler.Submit)
		r.Get("/queue", downloadHandler.Queue)
		r.Get("/queue/position", downloadHandler.Position)
		r.Delete("/queue/users/{userID}", downloadHandler.CancelUser)

		// Operator event feed
		r.Get("/events", downloadHandler.Events)

		// Per-user history and preferences
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/history", downloadHandler.History)
			r.Get("/quality", downloadHandler.GetQuality)
			r.Put("/quality", downloadHandler.SetQuality)
		})
	})

	return r
}
