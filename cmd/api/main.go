package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "urbannest/internal/adapters/http_server"
	"urbannest/internal/adapters/observability"
	"urbannest/internal/adapters/recordsvc"
	redisad "urbannest/internal/adapters/redis"
	"urbannest/internal/app"
	"urbannest/internal/domain"
	"urbannest/internal/shared"
	"urbannest/internal/storage/memory"
	mysqlrepo "urbannest/internal/storage/mysql"
	"urbannest/internal/storage/record"
)

// stores groups the three persistence ports, all served by whichever
// backend STORE_BACKEND selects.
type stores struct {
	reviews    domain.ReviewStore
	properties domain.PropertyStore
	favorites  domain.FavoriteStore
}

func openStores(cfg shared.Config) stores {
	switch cfg.StoreBackend {
	case "memory":
		s := memory.New(cfg.FixtureDelay)
		if err := app.NewSeedService(s, s, cfg.Workers).Run(context.Background(), cfg.FixtureDir); err != nil {
			log.Warn().Err(err).Msg("fixture load failed; starting empty")
		}
		log.Info().Dur("delay", cfg.FixtureDelay).Msg("using in-memory store")
		return stores{reviews: s, properties: s, favorites: s}
	case "record":
		client, err := recordsvc.New(cfg.RecordBase, cfg.RecordKey, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize record client")
		}
		s := record.New(client)
		log.Info().Str("base", cfg.RecordBase).Msg("using record store")
		return stores{reviews: s, properties: s, favorites: s}
	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		log.Info().Msg("database connection ok")
		s := mysqlrepo.New(db)
		return stores{reviews: s, properties: s, favorites: s}
	}
}

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	st := openStores(cfg)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	notifier := observability.NewLogNotifier(log.Logger)

	rating := app.NewRatingService(st.reviews)
	reviews := app.NewReviewService(st.reviews, rating, notifier)
	favorites := app.NewFavoriteService(st.favorites, notifier)
	queries := app.NewPropertyQueryService(st.properties, cache, cfg.CacheTTL)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{
		Properties: queries,
		Reviews:    reviews,
		Rating:     rating,
		Favorites:  favorites,
	})

	log.Info().Str("addr", cfg.HTTPAddr).Str("backend", cfg.StoreBackend).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
