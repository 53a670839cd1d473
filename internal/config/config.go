// Package config loads the proxy's environment-driven configuration: the
// enumerated options of §6 plus the additions the full ambient stack
// needs (reference cache sizing, the janitor interval, the log queue and
// its Redis backend, the listen address). The upstream relay list is not
// part of it: that is read from the rule repository.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full set of environment-sourced settings. There is no
// file-based layer here — unlike the admin rule rows, which come from
// the repository, every field below is read directly from the process
// environment with a single defaulting pass.
type Config struct {
	AdminUser string
	AdminPass string

	DatabaseURL    string
	SupabaseAPIKey string
	LogLevel       string

	RefCacheTTLSeconds     int
	RefCacheCapacity       int
	JanitorIntervalSeconds int
	LogQueueCapacity       int
	RedisURL               string

	ListenAddr string
}

// Load reads a ".env" file if present (a missing file is not an error —
// it's the normal case outside local development) and builds Config from
// the environment, applying defaults for everything optional.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	cfg := &Config{
		AdminUser: os.Getenv("ADMIN_USER"),
		AdminPass: os.Getenv("ADMIN_PASS"),

		DatabaseURL:    getEnv("DATABASE_URL", "sqlite:data/app.sqlite"),
		SupabaseAPIKey: os.Getenv("SUPABASE_API_KEY"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		RefCacheTTLSeconds:     getEnvInt("REFCACHE_TTL_SECONDS", 5),
		RefCacheCapacity:       getEnvInt("REFCACHE_CAPACITY", 10000),
		JanitorIntervalSeconds: getEnvInt("JANITOR_INTERVAL_SECONDS", 1),
		LogQueueCapacity:       getEnvInt("LOG_QUEUE_CAPACITY", 1024),
		RedisURL:               getEnv("REDIS_URL", "redis://127.0.0.1:6379/0"),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
	}

	if cfg.AdminUser == "" || cfg.AdminPass == "" {
		return nil, errMissingAdminCreds
	}

	return cfg, nil
}

type configError string

func (e configError) Error() string { return string(e) }

var errMissingAdminCreds = configError("ADMIN_USER and ADMIN_PASS are required")

// Logger builds the process-wide structured logger at the configured
// level.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

