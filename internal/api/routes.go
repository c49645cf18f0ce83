package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		// Run a full analysis pass over a posted snapshot
		r.Post("/analyze", h.RunAnalysis)

		// Latest cached result and its slices
		r.Get("/analysis/latest", h.LatestAnalysis)
		r.Get("/metrics/daily", h.DailyMetrics)
		r.Get("/metrics/subids", h.SubIDMetrics)
		r.Get("/metrics/platforms", h.PlatformMetrics)
		r.Get("/trends", h.Trends)
		r.Get("/budget/plan", h.BudgetPlan)
		r.Get("/recommendations", h.Recommendations)

		// Alerts with operator read/dismiss state
		r.Get("/alerts", h.Alerts)
		r.Post("/alerts/{alertID}/read", h.MarkAlertRead)
		r.Post("/alerts/{alertID}/dismiss", h.DismissAlert)
	})

	return r
}
