package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/saturnino-fabrica-de-software/voterid/internal/config"
	"github.com/saturnino-fabrica-de-software/voterid/internal/database"
	"github.com/saturnino-fabrica-de-software/voterid/internal/domain"
	"github.com/saturnino-fabrica-de-software/voterid/internal/repository"
)

// genkey registers a polling station terminal and prints its API key once.
// With -dry-run it only generates a key, without touching the database.
// -list STATION_ID shows the station's keys and -revoke PREFIX deactivates one.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	name := flag.String("name", "", "Station name")
	code := flag.String("code", "", "Station code (lowercase, hyphens)")
	election := flag.String("election", "", "Default election UUID for the station")
	env := flag.String("env", domain.EnvLive, "Key environment: live or test")
	dryRun := flag.Bool("dry-run", false, "Only generate a key")
	list := flag.String("list", "", "List the keys of a station id")
	revoke := flag.String("revoke", "", "Revoke the active key with this prefix")
	flag.Parse()

	if *dryRun {
		key, hash, prefix, err := domain.GenerateAPIKey(*env)
		if err != nil {
			return err
		}
		fmt.Printf("KEY=%s\nHASH=%s\nPREFIX=%s\n", key, hash, prefix)
		return nil
	}

	_ = godotenv.Load()
	cfg, err := config.LoadDatabase()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.NewPgxPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer pool.Close()

	keys := repository.NewAPIKeyRepository(pool)

	switch {
	case *revoke != "":
		if err := keys.RevokeByPrefix(ctx, *revoke); err != nil {
			return err
		}
		fmt.Printf("REVOKED=%s\n", *revoke)
		return nil

	case *list != "":
		stationID, err := uuid.Parse(*list)
		if err != nil {
			return fmt.Errorf("invalid station id: %w", err)
		}
		return printKeys(ctx, keys, stationID)
	}

	return provision(ctx, pool, keys, *name, *code, *election, *env)
}

func provision(ctx context.Context, pool *pgxpool.Pool, keys *repository.APIKeyRepository, name, code, election, env string) error {
	station := &domain.Station{Name: name, Code: code, IsActive: true}
	if election != "" {
		id, err := uuid.Parse(election)
		if err != nil {
			return fmt.Errorf("invalid election id: %w", err)
		}
		station.ElectionID = &id
	}
	if err := station.Validate(); err != nil {
		return err
	}

	key, hash, prefix, err := domain.GenerateAPIKey(env)
	if err != nil {
		return err
	}

	if err := repository.NewStationRepository(pool).Create(ctx, station); err != nil {
		return err
	}

	apiKey := &domain.APIKey{
		StationID:   station.ID,
		Name:        station.Code + " terminal",
		KeyHash:     hash,
		KeyPrefix:   prefix,
		Environment: env,
		IsActive:    true,
	}
	if err := apiKey.Validate(); err != nil {
		return err
	}
	if err := keys.Create(ctx, apiKey); err != nil {
		return err
	}

	fmt.Printf("STATION_ID=%s\nKEY=%s\nPREFIX=%s\n", station.ID, key, prefix)
	return nil
}

func printKeys(ctx context.Context, keys *repository.APIKeyRepository, stationID uuid.UUID) error {
	list, err := keys.ListByStation(ctx, stationID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PREFIX\tNAME\tENV\tACTIVE\tLAST USED")
	for _, k := range list {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format(time.RFC3339)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\n", k.KeyPrefix, k.Name, k.Environment, k.IsActive, lastUsed)
	}
	return w.Flush()
}
