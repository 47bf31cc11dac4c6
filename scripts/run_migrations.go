package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/safar/go-ticket-desk/internal/config"
	"github.com/safar/go-ticket-desk/internal/database"
	"github.com/safar/go-ticket-desk/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if direction == "down" {
		err = migrations.Revert(ctx, db)
	} else {
		err = migrations.Apply(ctx, db)
	}
	if err != nil {
		log.Fatalf("Run migrations %s: %v", direction, err)
	}

	log.Printf("Successfully ran migrations %s", direction)
}
