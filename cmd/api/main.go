package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"orgmap/infrastructure/config"
	"orgmap/infrastructure/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(config.DirFromEnv(), config.EnvironmentFromEnv())
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := di.Serve(ctx, loader, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
