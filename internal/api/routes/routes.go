package routes

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"jobharvest/internal/api/handlers"
	"jobharvest/internal/api/middleware"
	"jobharvest/internal/config"
	"jobharvest/internal/llm"
	"jobharvest/internal/scheduler"
)

// SetupRoutes configures all API routes
func SetupRoutes(e *echo.Echo, cfg *config.Config, orch *scheduler.Orchestrator, svc *scheduler.Service, llmManager *llm.Manager) {
	// Global middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(middleware.CORSConfig())
	e.Use(middleware.RequestValidation())
	e.Use(middleware.TimeoutConfig(cfg.Server.ReadTimeout))

	gateway := handlers.NewGateway(cfg)

	// Health check routes
	health := e.Group("/health")
	{
		health.GET("", handlers.HealthHandler)
		health.GET("/ready", handlers.ReadinessHandler(llmManager))
		health.GET("/live", handlers.LivenessHandler)
	}
	e.GET("/healthz", handlers.LivenessHandler)

	// Scraper admin routes
	e.GET("/status", handlers.StatusHandler(orch))
	e.POST("/trigger", handlers.TriggerHandler(orch))
	e.PUT("/interval", handlers.UpdateIntervalHandler(svc))
	e.POST("/stop", handlers.StopHandler(svc))

	// Webhook routes
	webhook := e.Group("/webhook")
	{
		webhook.POST("/scrape", handlers.WebhookScrapeHandler(cfg, gateway, orch))
	}

	// Root route
	e.GET("/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"service": "JobHarvest Aggregator",
			"version": "1.0.0",
			"status":  "running",
		})
	})
}
