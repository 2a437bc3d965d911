package web

import (
	"github.com/kozaktomas/face-consistency/internal/web/handlers"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	compareHandler := handlers.NewCompareHandler(s.comparer, s.logger)
	verifyHandler := handlers.NewVerifyHandler(s.verifier, s.logger)

	// Health check
	s.router.Get("/", handlers.HealthCheck)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// Comparisons
	s.router.Post("/compare", compareHandler.Compare)
	s.router.Post("/compare/pair", compareHandler.ComparePair)
	s.router.Post("/api/v1/compare", compareHandler.Compare)
	s.router.Post("/api/v1/compare/pair", compareHandler.ComparePair)

	// Registration verification
	s.router.Post("/verify", verifyHandler.Verify)
	s.router.Post("/api/v1/verify", verifyHandler.Verify)

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}
