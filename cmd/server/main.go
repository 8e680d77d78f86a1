package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"jobharvest/internal/api/routes"
	"jobharvest/internal/config"
	"jobharvest/internal/llm"
	"jobharvest/internal/logging"
	"jobharvest/internal/pipeline"
	"jobharvest/internal/scheduler"
	"jobharvest/internal/scraper/fetcher"
	"jobharvest/internal/sources"
	"jobharvest/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logging
	if err := logging.InitializeLogging(cfg); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.CloseLogging()

	logger := logging.GetGlobalLogger()
	logger.Info("Starting JobHarvest Aggregator", map[string]interface{}{})

	// Connect to the job store
	storeCtx, cancelStore := context.WithTimeout(context.Background(), cfg.Mongo.Timeout)
	jobStore, err := store.NewMongoStore(storeCtx, cfg)
	cancelStore()
	if err != nil {
		logger.Fatal("Failed to connect to job store", map[string]interface{}{"error": err.Error()})
	}
	defer jobStore.Close(context.Background())

	// Initialize LLM manager
	llmManager := llm.NewManager(cfg)
	if err := llmManager.Start(); err != nil {
		logger.Fatal("Failed to start LLM manager", map[string]interface{}{"error": err.Error()})
	}

	// Load the source registry
	registry, err := sources.Default()
	if err != nil {
		logger.Fatal("Failed to load source registry", map[string]interface{}{"error": err.Error()})
	}
	logger.Info("Source registry loaded", map[string]interface{}{
		"sources": registry.Names(),
	})

	// Wire the pipeline
	fetchClient := fetcher.NewClient(cfg)
	defer fetchClient.Close()

	runner := pipeline.NewRunner(cfg, registry, fetchClient, llmManager, jobStore)

	// Orchestrator, cron scheduler and the continuous top-up checker
	orch := scheduler.NewOrchestrator(cfg, runner, jobStore)
	svc, err := scheduler.NewService(cfg, orch)
	if err != nil {
		logger.Fatal("Failed to build scheduler", map[string]interface{}{"error": err.Error()})
	}
	svc.Start()

	continuous, err := scheduler.NewContinuousScraper(cfg, orch, jobStore)
	if err != nil {
		logger.Fatal("Failed to build continuous scraper", map[string]interface{}{"error": err.Error()})
	}
	continuous.Start()

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Setup routes
	routes.SetupRoutes(e, cfg, orch, svc, llmManager)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...", map[string]interface{}{})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		logger.Info("Stopping scheduler...", map[string]interface{}{})
		continuous.Stop()
		svc.Stop()

		logger.Info("Stopping HTTP server...", map[string]interface{}{})
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down server", map[string]interface{}{"error": err.Error()})
		}

		logger.Info("Server shutdown complete", map[string]interface{}{})
	}()

	// Start server
	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", map[string]interface{}{"address": address})

	if err := e.Start(address); err != nil {
		logger.Error("Server stopped", map[string]interface{}{"error": err.Error()})
	}
}
