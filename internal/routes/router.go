package routes

import (
	"net/http"

	"linker/internal/api"
	"linker/internal/logging"
	"linker/internal/metrics"
	"linker/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RegisterRoutes builds the chi router with global middleware and every route.
func RegisterRoutes(deps *api.Dependencies, metricsReg *metrics.MetricsRegistry) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.MetricsMiddleware(metricsReg))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.HeaderRequestID, api.HeaderUserID},
		ExposedHeaders:   []string{middleware.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	handlers := api.NewHandlers(deps)

	r.Get("/healthCheck", handlers.HealthCheck())
	RegisterAPIRoutes(r, handlers)

	logging.Info("Router initialized with metrics and logging middleware")
	return r
}
