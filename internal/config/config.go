// Package config loads newsflow configuration from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values.
type Config struct {
	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// Search collaborator (news search API)
	SearchAPIURL     string
	SearchAPIKey     string
	SearchTimeout    time.Duration
	SearchRateLimit  float64 // requests per second
	SearchRateBurst  int
	DefaultMaxItems  int
	DefaultBatchSize int

	// AI provider
	AIProvider      string // "openai", "anthropic" or "ollama"
	AIModel         string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaHost      string
	PricingFile     string

	// Backup
	BackupDir    string
	BackupBucket string // S3 bucket; empty = local directory only
	BackupRegion string

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Providers supported for the text-analysis collaborator.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first, without overriding already-set variables.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "newsflow"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "admin"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		SearchAPIURL:     getEnv("NEWSFLOW_SEARCH_API_URL", "https://api.firecrawl.dev/v1"),
		SearchAPIKey:     getEnv("NEWSFLOW_SEARCH_API_KEY", ""),
		SearchTimeout:    getEnvDuration("NEWSFLOW_SEARCH_TIMEOUT", 10*time.Second),
		SearchRateLimit:  getEnvFloat("NEWSFLOW_SEARCH_RATE_LIMIT", 2),
		SearchRateBurst:  getEnvInt("NEWSFLOW_SEARCH_RATE_BURST", 5),
		DefaultMaxItems:  getEnvInt("NEWSFLOW_MAX_ARTICLES", 50),
		DefaultBatchSize: getEnvInt("NEWSFLOW_BATCH_SIZE", 10),

		AIProvider:      getEnv("NEWSFLOW_AI_PROVIDER", ProviderOpenAI),
		AIModel:         getEnv("NEWSFLOW_AI_MODEL", "gpt-4"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OllamaHost:      getEnv("OLLAMA_HOST", "http://localhost:11434"),
		PricingFile:     getEnv("NEWSFLOW_PRICING_FILE", ""),

		BackupDir:    getEnv("NEWSFLOW_BACKUP_DIR", "backups"),
		BackupBucket: getEnv("NEWSFLOW_BACKUP_BUCKET", ""),
		BackupRegion: getEnv("NEWSFLOW_BACKUP_REGION", "us-east-1"),

		LogFile:  getEnv("NEWSFLOW_LOG_FILE", "/tmp/newsflow.log"),
		LogLevel: parseLogLevel(getEnv("NEWSFLOW_LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
