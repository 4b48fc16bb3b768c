// app runs read-only operator commands against the database.
//
// Usage: go run ./cmd/app <command> --boutique <id> [options]
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/Drasasse/gestion-commerce-sub001/internal/adapters/cli"
	"github.com/Drasasse/gestion-commerce-sub001/internal/app"
	"github.com/Drasasse/gestion-commerce-sub001/internal/config"
	"github.com/Drasasse/gestion-commerce-sub001/internal/db"
	"github.com/Drasasse/gestion-commerce-sub001/internal/logging"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	// Commands only print to the terminal; keep the logger for warnings and errors.
	logger, err := logging.New(true, "warn")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	svc := app.NewAppService(pool, logger)
	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, cli.ErrViolations) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
