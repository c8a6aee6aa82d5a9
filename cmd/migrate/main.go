package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/voterid/internal/config"
	"github.com/saturnino-fabrica-de-software/voterid/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", "up", "Migration action: up, down, version, force")
	steps := flag.Int("steps", 1, "Number of migrations to roll back (down action)")
	version := flag.Int("version", -1, "Target version (force action)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(os.Getenv("ENV"))

	dbName, err := database.DatabaseName(cfg.DatabaseURL)
	if err != nil {
		return err
	}

	// database/sql connection (required by golang-migrate)
	db, err := database.NewPool(database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, dbName, database.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		migrator.Stop()
	}()

	logger.Info("connected", slog.String("database", dbName), slog.String("action", *action))

	switch *action {
	case "up":
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}

	case "down":
		if *steps < 1 {
			return fmt.Errorf("steps must be at least 1")
		}
		if err := migrator.Steps(-*steps); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}

	case "version":
		// reported below

	case "force":
		if *version < 0 {
			return fmt.Errorf("version flag is required for force action")
		}
		if err := migrator.Force(*version); err != nil {
			return fmt.Errorf("force migration failed: %w", err)
		}

	default:
		return fmt.Errorf("invalid action: %s (use: up, down, version, force)", *action)
	}

	current, dirty, err := migrator.Version()
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	if dirty {
		logger.Warn("schema is dirty, a migration did not complete", slog.Uint64("version", uint64(current)))
		return nil
	}
	logger.Info("schema version", slog.Uint64("version", uint64(current)))

	return nil
}
