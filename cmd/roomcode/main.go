package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/gokatarajesh/quiz-rooms/internal/app"
	"github.com/gokatarajesh/quiz-rooms/internal/config"
)

func main() {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load("configs/.env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadRoomCode(ctx)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.NewRoomCode(cfg).Run(ctx); err != nil {
		log.Fatalf("runtime error: %v", err)
	}
}
