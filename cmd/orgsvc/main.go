package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/friendy21/workspace-auth/internal/infra/app"
	"github.com/friendy21/workspace-auth/internal/infra/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	application, err := app.NewOrg(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init org service: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Printf("org service stopped: %v", err)
		os.Exit(1)
	}
}
