package main

import (
	"context"
	"log"
	"os"
	"time"

	"schoolpay/internal/config"
	"schoolpay/internal/database"
	"schoolpay/internal/repository"

	"github.com/joho/godotenv"
)

// Ages out webhook delivery records past the retention window. Intended to
// run from cron; orders and their status ledger are never touched.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	cutoff := time.Now().UTC().Add(-cfg.WebhookRetention)
	deleted, err := repository.NewWebhookDeliveryRepository(db).DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		log.Fatalf("webhook cleanup failed: %v", err)
	}

	log.Printf("webhook cleanup completed: deleted=%d cutoff=%s", deleted, cutoff.Format(time.RFC3339))
}
