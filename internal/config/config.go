package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Server
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Auth
	JWTSecret string

	// Broadcast backbone (empty = single-instance mode)
	RedisURL string

	// Completion API (Anthropic)
	AnthropicAPIKey string
	AnthropicAPIURL string
	AnthropicModel  string
	MaxOutputTokens int
	Temperature     float64

	// Retry policy
	CompletionMaxAttempts int
	CompletionBackoff     time.Duration

	// Context policy
	StalenessWindow time.Duration
	HistoryLimit    int
	CheckInWindow   time.Duration
	TurnTimeout     time.Duration
}

func Load() *Config {
	maxAttempts, _ := strconv.Atoi(getEnv("COMPLETION_MAX_ATTEMPTS", "3"))
	backoffSecs, _ := strconv.Atoi(getEnv("COMPLETION_BACKOFF_SECONDS", "2"))
	staleHours, _ := strconv.Atoi(getEnv("CONTEXT_STALENESS_HOURS", "8"))
	historyLimit, _ := strconv.Atoi(getEnv("HISTORY_LIMIT", "1000"))
	checkinDays, _ := strconv.Atoi(getEnv("CHECKIN_WINDOW_DAYS", "7"))
	turnTimeout, _ := strconv.Atoi(getEnv("TURN_TIMEOUT_SECONDS", "120"))
	maxTokens, _ := strconv.Atoi(getEnv("MAX_OUTPUT_TOKENS", "1024"))
	temperature, _ := strconv.ParseFloat(getEnv("TEMPERATURE", "1.0"), 64)

	return &Config{
		Port:                  getEnv("PORT", "8090"),
		DBHost:                getEnv("DB_HOST", "localhost"),
		DBPort:                getEnv("DB_PORT", "5432"),
		DBUser:                getEnv("DB_USER", "postgres"),
		DBPassword:            getEnv("DB_PASSWORD", ""),
		DBName:                getEnv("DB_NAME", "solace_db"),
		DBSSLMode:             getEnv("DB_SSLMODE", "disable"),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		AnthropicAPIKey:       getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicAPIURL:       getEnv("ANTHROPIC_API_URL", "https://api.anthropic.com/v1/messages"),
		AnthropicModel:        getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		MaxOutputTokens:       maxTokens,
		Temperature:           temperature,
		CompletionMaxAttempts: maxAttempts,
		CompletionBackoff:     time.Duration(backoffSecs) * time.Second,
		StalenessWindow:       time.Duration(staleHours) * time.Hour,
		HistoryLimit:          historyLimit,
		CheckInWindow:         time.Duration(checkinDays) * 24 * time.Hour,
		TurnTimeout:           time.Duration(turnTimeout) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
