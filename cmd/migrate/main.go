// migrate applies the observation and identity link schema: go run ./cmd/migrate -direction up.
package main

import (
	"errors"
	"flag"
	"log"

	"identity-resolution/engine/internal/config"
	"identity-resolution/engine/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	switch err := migrate.Run(cfg.DatabaseURL, *direction); {
	case err == nil:
		log.Printf("migrate: %s applied", *direction)
	case errors.Is(err, migrate.ErrNoChange):
		log.Println("migrate: schema already up to date")
	default:
		log.Fatalf("migrate: %v", err)
	}
}
