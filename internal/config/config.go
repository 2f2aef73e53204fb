package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"stockroom/m/domain"
	"stockroom/m/internal/database"
)

// DriverMemory keeps all data in process; nothing survives a restart.
const DriverMemory = "memory"

// Config holds application configuration values.
type Config struct {
	Env               string
	Secret            string
	HTTPPort          string
	DatabaseDriver    string
	DatabaseDSN       string
	RedisAddr         string
	StatsCacheTTL     time.Duration
	LowStockThreshold int
	Location          *time.Location
	SeedCSV           string
}

// Production reports whether ENV is "production".
func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables with reasonable defaults.
func Load() Config {
	env := os.Getenv("ENV")
	if env == "" {
		env = "development"
	}

	secret := os.Getenv("SECRET")
	if secret == "" {
		secret = "dev_secret"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}
	// Validate that port is numeric.
	if _, err := strconv.Atoi(port); err != nil {
		log.Printf("invalid HTTP_PORT value %q, defaulting to 8080", port)
		port = "8080"
	}

	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "stockroom.db"
	}
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = DetectDriver(dsn)
	}

	ttl := 30 * time.Second
	if raw := os.Getenv("STATS_CACHE_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed >= 0 {
			ttl = parsed
		} else {
			log.Printf("invalid STATS_CACHE_TTL value %q, defaulting to %s", raw, ttl)
		}
	}

	threshold := domain.DefaultLowStockThreshold
	if raw := os.Getenv("LOW_STOCK_THRESHOLD"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			threshold = parsed
		} else {
			log.Printf("invalid LOW_STOCK_THRESHOLD value %q, defaulting to %d", raw, threshold)
		}
	}

	loc := time.Local
	if name := os.Getenv("TIMEZONE"); name != "" {
		if parsed, err := time.LoadLocation(name); err == nil {
			loc = parsed
		} else {
			log.Printf("invalid TIMEZONE value %q, using local time", name)
		}
	}

	return Config{
		Env:               env,
		Secret:            secret,
		HTTPPort:          port,
		DatabaseDriver:    driver,
		DatabaseDSN:       dsn,
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		StatsCacheTTL:     ttl,
		LowStockThreshold: threshold,
		Location:          loc,
		SeedCSV:           os.Getenv("SEED_CSV"),
	}
}

// DetectDriver guesses the database driver from the shape of a DSN.
func DetectDriver(dsn string) string {
	switch {
	case dsn == DriverMemory:
		return DriverMemory
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return database.DriverPostgres
	case strings.Contains(dsn, "@tcp("), strings.Contains(dsn, "@unix("):
		return database.DriverMySQL
	default:
		return database.DriverSQLite
	}
}
