package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MaterialHarvester/internal/app"
	"MaterialHarvester/internal/config"
	"MaterialHarvester/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		logger.Error("harvest stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
}
