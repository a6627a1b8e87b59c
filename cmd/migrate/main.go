// Command migrate applies or reverts the embedded database migrations.
//
//	migrate [up|down]
package main

import (
	"log/slog"
	"os"

	"bank-cards/internal/config"
	"bank-cards/internal/repository"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	if err := repository.Migrate(cfg.GetDatabaseURL(), direction); err != nil {
		logger.Error("Migration failed", "direction", direction, "error", err)
		os.Exit(1)
	}

	logger.Info("Migrations complete", "direction", direction)
}
