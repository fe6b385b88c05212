package routes

import (
	"linker/internal/api"
	"linker/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// Manual fixes are typed in by staff; anything faster is a client bug.
const (
	manualLogRPS   = 1
	manualLogBurst = 5
)

// RegisterAPIRoutes registers all API v1 routes and handlers
func RegisterAPIRoutes(r chi.Router, handlers *api.Handlers) {
	manualLimiter := middleware.NewRateLimiter(manualLogRPS, manualLogBurst, "127.0.0.1")

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/stats", handlers.GetStats())
		v1.Get("/checkpointlogs", handlers.ListCheckpointLogs())

		v1.Route("/trackers", func(trackers chi.Router) {
			trackers.Get("/", handlers.ListTrackers())
			trackers.Get("/{id}/track", handlers.GetTrack())
			trackers.With(manualLimiter.Middleware).Post("/{id}/logs", handlers.AddManualLog())
		})

		v1.Get("/notifications", handlers.ListNotifications())
		v1.Post("/notifications/{id}/read", handlers.MarkNotificationRead())

		v1.Route("/admin", func(admin chi.Router) {
			admin.Post("/jobs/ingest", handlers.TriggerIngest())
			admin.Post("/simulation/reset", handlers.ResetSimulation())
		})
	})
}
