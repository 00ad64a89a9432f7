package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"economy-service/internal/config"
	"economy-service/internal/server"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env (optional)
	if err := godotenv.Load(); err != nil {
		log.Println("Economy: No .env file found, relying on system env vars")
	}

	cfg := config.Load()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌍 Economy server starting on %s", cfg.HTTPAddr)
		// Blocks until the server exits. Role membership is resolved by
		// the chat gateway; without one the allowance sweep idles.
		server.NewEconomyServer(cfg, nil)
		errCh <- nil
	}()

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Println("🛑 Economy service shutting down gracefully...")
		_, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Economy service failed: %v", err)
		}
	}
}
