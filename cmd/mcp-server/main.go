// Package main serves the inference tools over MCP on stdio. Logs go to
// stderr because stdout carries the protocol.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/medguard-inference-server/internal/app"
	"github.com/medguard-inference-server/internal/config"
	"github.com/medguard-inference-server/internal/mcp"
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

	server := mcp.NewServer(cfg.MCP, application.Service, application.Logger)
	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		application.Logger.WithError(err).Error("MCP server failed")
		return
	}

	application.Logger.Info("MedGuard MCP server stopped")
}
