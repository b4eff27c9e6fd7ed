// Package main is the catalog maintenance tool: export, check and seed
// knowledge base catalogs, and register the MCP server with a client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/medguard-inference-server/internal/config"
	"github.com/medguard-inference-server/internal/setup"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := configManager.GetConfig()
	logger := config.NewLogger(cfg.Logging, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := setup.NewCLI(cfg, logger, os.Stdout)
	if err := cli.Run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.Is(err, setup.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
