package main

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"urbannest/internal/adapters/observability"
	"urbannest/internal/adapters/recordsvc"
	"urbannest/internal/app"
	"urbannest/internal/domain"
	"urbannest/internal/shared"
	mysqlrepo "urbannest/internal/storage/mysql"
	"urbannest/internal/storage/record"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("backend", cfg.StoreBackend).
		Str("dir", cfg.FixtureDir).
		Int("workers", cfg.Workers).
		Msg("seeder starting")

	var (
		properties domain.PropertyStore
		reviews    domain.ReviewStore
	)
	switch cfg.StoreBackend {
	case "memory":
		log.Fatal().Msg("the in-memory store is per-process; run the API with STORE_BACKEND=memory instead of seeding")
	case "record":
		client, err := recordsvc.New(cfg.RecordBase, cfg.RecordKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize record client")
		}
		s := record.New(client)
		properties, reviews = s, s
	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("db ping ok")
		s := mysqlrepo.New(db)
		properties, reviews = s, s
	}

	seeder := app.NewSeedService(properties, reviews, cfg.Workers)
	if err := seeder.Run(ctx, cfg.FixtureDir); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().Msg("seeding completed")
}
