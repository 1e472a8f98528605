// Package internal contains core application functionality
package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	"sitepulse/internal/config"
	"sitepulse/internal/http"
)

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Helper to conditionally apply rate limiting (only in production)
	// In development/test, rate limiting would interfere with testing
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// The manual trigger endpoints kick off full-table scans over raw events;
	// keep operators from hammering them
	triggerRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(10),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	triggerConfig := &cartridge.RouteConfig{
		CustomMiddleware: []fiber.Handler{triggerRateLimiter},
	}

	// Health check endpoint
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// Manual aggregation triggers
	srv.Post("/api/v1/aggregation/run", http.RunBatchAggregationAction, triggerConfig)
	srv.Post("/api/v1/aggregation/projects/:id/run", http.RunProjectAggregationAction, triggerConfig)
}
