package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"obruk-backend/app/src/database"
	"obruk-backend/app/src/infra"
	_ "obruk-backend/app/src/infra/utils/autoload"
)

// Ensures the postgres schema exists before the service starts. Only needed
// for STORAGE_DRIVER=postgres; the file store creates its document lazily.
func main() {
	cfg := infra.LoadConfig()
	logger := infra.NewLogger(os.Stdout, "migrate")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn, err := database.BuildDatabaseDSN(cfg)
	if err != nil {
		logger.Fatalf(ctx, "failed to build database DSN: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := database.WaitForDatabase(waitCtx, dsn, logger); err != nil {
		logger.Fatalf(ctx, "database connectivity check failed: %v", err)
	}

	db, err := database.Connect(ctx, dsn)
	if err != nil {
		logger.Fatalf(ctx, "connect: %v", err)
	}
	defer db.Close()

	if _, err := database.NewPostgresStore(ctx, db); err != nil {
		logger.Fatalf(ctx, "ensure schema: %v", err)
	}

	logger.Println(ctx, "measurements schema is up to date")
}
