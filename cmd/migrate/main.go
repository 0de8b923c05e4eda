package main

import (
	"log"

	"github.com/bebranft/creator-market/internal/config"
	"github.com/bebranft/creator-market/internal/database"
)

// Standalone migration runner for deployments that migrate before rollout.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed")
}
