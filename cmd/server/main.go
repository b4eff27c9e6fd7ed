package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/medguard-inference-server/internal/api"
	"github.com/medguard-inference-server/internal/app"
	"github.com/medguard-inference-server/internal/config"
	"github.com/medguard-inference-server/internal/middleware"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := configManager.GetConfig()
	application, err := app.New(ctx, cfg, os.Stderr)
	if err != nil {
		log.Fatalf("Failed to initialize inference service: %v", err)
	}
	defer application.Close()
	logger := application.Logger

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter, err = middleware.NewRateLimiter(cfg.RateLimit, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create rate limiter")
		}
		limiter.Start()
		defer limiter.Stop()
	}

	server := api.NewServer(configManager, application.Service, logger, application.APIOptions(limiter))

	logger.WithFields(logrus.Fields{
		"host":        cfg.Server.Host,
		"port":        cfg.Server.Port,
		"environment": cfg.Server.Environment,
	}).Info("Starting MedGuard inference server")

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Error("Server failed")
		return
	}

	logger.Info("Server stopped")
}
