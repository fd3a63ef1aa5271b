// Command migrate applies or rolls back the check-in schema and optionally loads demo data.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ms-checkin/internal/config"
	"ms-checkin/internal/database"
	"ms-checkin/internal/database/migrations"
	"ms-checkin/internal/logger"
)

func main() {
	down := flag.Bool("down", false, "roll the schema back instead of applying it")
	seed := flag.Bool("seed", false, "load demo users, events and participants after migrating")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Dir, logger.ParseLevel(cfg.Log.Level))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}
	defer db.Close()

	if *down {
		if err := migrations.Rollback(ctx, db, log); err != nil {
			log.Fatal("MIGRATE", err.Error())
		}
		log.Info("MIGRATE", "Rollback complete")
		return
	}

	if err := migrations.Migrate(ctx, db, log); err != nil {
		log.Fatal("MIGRATE", err.Error())
	}
	if *seed || cfg.Database.Seed {
		if err := migrations.Seed(ctx, db, time.Now().UTC()); err != nil {
			log.Fatal("SEED", err.Error())
		}
		log.Info("SEED", "Demo data loaded")
	}
	log.Info("MIGRATE", "Done")
}
