package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string // development | production
	Port     string
	DBDSN    string // empty = in-memory storage
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present (dev convenience, never required).
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppEnv:   getenv("APP_ENV", "development"),
		Port:     getenv("PORT", "8080"),
		DBDSN:    strings.TrimSpace(os.Getenv("DB_DSN")),
		LogLevel: getenv("LOG_LEVEL", "info"),
	}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
