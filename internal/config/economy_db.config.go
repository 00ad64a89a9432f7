package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_NAME"),
	)
}

func ConnectDB() (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// tuning pool settings
	poolCfg.MaxConns = 25
	poolCfg.MinConns = 5
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 10 * time.Minute

	maxRetries := 5
	delay := 2 * time.Second

	var dbpool *pgxpool.Pool
	for i := 1; i <= maxRetries; i++ {
		log.Printf("[DB] Attempt %d/%d: connecting to database...", i, maxRetries)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		dbpool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if pingErr := dbpool.Ping(ctx); pingErr == nil {
				cancel()
				log.Println("[DB] ✅ Connected successfully!")
				return dbpool, nil
			} else {
				err = fmt.Errorf("ping failed: %w", pingErr)
				dbpool.Close()
			}
		}
		cancel()

		log.Printf("[DB] ❌ Connection failed: %v", err)
		if i < maxRetries {
			log.Printf("[DB] Retrying in %s...", delay)
			time.Sleep(delay)
			delay *= 2 // exponential backoff
		}
	}

	return nil, fmt.Errorf("failed to connect to DB after %d attempts: %w", maxRetries, err)
}
