package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv       string
	HTTPAddr     string
	StoreBackend string // mysql | memory | record
	MySQLDSN     string
	RedisAddr    string
	RedisDB      int
	RedisPass    string
	RecordBase   string
	RecordKey    string
	FixtureDir   string
	FixtureDelay time.Duration
	Workers      int
	CacheTTL     time.Duration
}

func Load() Config {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:       env("APP_ENV", "prod"),
		HTTPAddr:     env("HTTP_ADDR", ":8080"),
		StoreBackend: env("STORE_BACKEND", "mysql"),
		MySQLDSN:     env("MYSQL_DSN", "root:root@tcp(localhost:3306)/urbannest?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisDB:      atoi("REDIS_DB", 0),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RecordBase:   env("RECORD_BASE_URL", ""),
		RecordKey:    env("RECORD_API_KEY", ""),
		FixtureDir:   env("FIXTURE_DIR", "data/fixtures"),
		FixtureDelay: time.Duration(atoi("FIXTURE_DELAY_MS", 0)) * time.Millisecond,
		Workers:      atoi("SEED_WORKERS", 8),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
	}
	if c.StoreBackend == "record" && c.RecordKey == "" {
		log.Warn().Msg("RECORD_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
