package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"

	"github.com/tpq-digital/payment-service/internal/config"
)

func main() {
	action := flag.String("action", "up", "Migration action: up, down, or version")
	steps := flag.Int("steps", 0, "Number of migrations to apply (for down)")
	path := flag.String("path", "migrations", "Migrations directory")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: no .env file found, using environment variables")
	}

	cfg := config.NewPostgresConfig()

	m, err := migrate.New(fmt.Sprintf("file://%s", *path), cfg.URL())
	if err != nil {
		log.Fatalf("Failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch *action {
	case "up":
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Migration up failed: %v", err)
		}
		log.Println("Migrations applied successfully")

	case "down":
		if *steps > 0 {
			if err := m.Steps(-*steps); err != nil {
				log.Fatalf("Migration down failed: %v", err)
			}
		} else {
			if err := m.Down(); err != nil {
				log.Fatalf("Migration down failed: %v", err)
			}
		}
		log.Println("Migrations rolled back successfully")

	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		log.Printf("Current version: %d, Dirty: %v", version, dirty)

	default:
		log.Fatalf("Unknown action: %s (use up, down, or version)", *action)
	}
}
