package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// AI provider
	AIProvider       string
	GeminiAPIKey     string
	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIModel      string
	AIConcurrentReqs int
	AIHistoryTurns   int

	// Workers
	WorkerCount int

	// Retention (days, 0 keeps messages forever)
	MessageRetentionDays int

	// Frontend
	FrontendURL string
	StaticDir   string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),

		AIProvider:       getEnvOrDefault("AI_PROVIDER", "gemini"),
		GeminiAPIKey:     getEnvOrDefault("GEMINI_API_KEY", ""),
		OpenAIAPIKey:     getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnvOrDefault("OPENAI_BASE_URL", ""),
		OpenAIModel:      getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		AIConcurrentReqs: getEnvAsIntOrDefault("AI_CONCURRENT_REQUESTS", 5),
		AIHistoryTurns:   getEnvAsIntOrDefault("AI_HISTORY_TURNS", 20),

		WorkerCount: getEnvAsIntOrDefault("WORKER_COUNT", 3),

		MessageRetentionDays: getEnvAsIntOrDefault("MESSAGE_RETENTION_DAYS", 0),

		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
		StaticDir:   getEnvOrDefault("STATIC_DIR", "./web"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
