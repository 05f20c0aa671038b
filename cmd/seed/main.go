package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Seeds a handful of fleet vehicles so the trucks endpoint and import
// pipeline have something to attach to on a fresh database.
func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	trucks := []struct {
		plate      string
		hoursBased bool
	}{
		{"ND123456", false},
		{"ND654321", false},
		{"CA789012", false},
		{"FORKLIFT-01", true},
	}

	for _, t := range trucks {
		if _, err := pool.Exec(ctx, `
			INSERT INTO trucks (license_plate, hours_based)
			VALUES ($1, $2)
			ON CONFLICT (license_plate) DO UPDATE SET hours_based = EXCLUDED.hours_based
		`, t.plate, t.hoursBased); err != nil {
			log.Fatalf("upsert truck %s: %v", t.plate, err)
		}
	}

	fmt.Printf("Seed completed. %d trucks upserted.\n", len(trucks))
}
