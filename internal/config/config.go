package config

import (
	"log/slog"
	"os"
	"strings"
)

// Config is assembled from environment variables with sensible defaults.
type Config struct {
	Environment string
	LogLevel    slog.Level

	// Inference service
	LLMProvider string // "anthropic" or "openai"
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string // optional, OpenAI-compatible providers

	// Persistence and content
	RedisAddr string
	DataDir   string

	// Active locale (BCP 47); the game definition supplies the default.
	Locale string
}

func Load() *Config {
	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		LLMProvider: getEnv("LLM_PROVIDER", "anthropic"),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMModel:    getEnv("LLM_MODEL", ""),
		LLMBaseURL:  getEnv("LLM_BASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		DataDir:     getEnv("DATA_DIR", "./data"),
		Locale:      getEnv("LOCALE", ""),
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
