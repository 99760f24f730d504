package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	LogLevel      string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	SheetsBaseURL string
	NatsURL       string
	NatsToken     string
	RedisURL      string
	SheetCacheTTL time.Duration
	DefaultPolicy string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set in the process win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:          envInt("DESKCHAT_PORT", 8760),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		GeminiAPIKey:  envStr("GEMINI_API_KEY", envStr("API_KEY", "")),
		GeminiModel:   envStr("DESKCHAT_MODEL", "gemini-3-flash-preview"),
		GeminiBaseURL: envStr("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
		SheetsBaseURL: envStr("SHEETS_BASE_URL", "https://docs.google.com"),
		NatsURL:       envStr("NATS_URL", ""),
		NatsToken:     envStr("NATS_TOKEN", ""),
		RedisURL:      envStr("REDIS_URL", ""),
		SheetCacheTTL: envDuration("SHEET_CACHE_TTL", 2*time.Minute),
		DefaultPolicy: envStr("DESKCHAT_POLICY", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
