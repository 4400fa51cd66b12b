package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/climajusto/iacolhe/internal/config"
	"github.com/climajusto/iacolhe/internal/server"
	"github.com/climajusto/iacolhe/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", "error", err)
	}
}
