package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// generateWorkerID creates a unique worker ID using hostname and PID
func generateWorkerID() string {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}

type Config struct {
	Port        string
	Environment string

	// Database
	DatabaseURL string
	MongoDBURL  string
	MongoDBName string
	RedisURL    string

	// OpenAI
	OpenAIAPIKeys  []string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// Gmail (support mailbox)
	GoogleClientID     string
	GoogleClientSecret string
	GmailRefreshToken  string

	// Analyzer
	AnalyzerIntervalSec int
	AnalyzerBatchSize   int
	HistoryDepth        int

	// Mailbox reader
	MailboxEnabled     bool
	MailboxIntervalSec int

	// Alerting
	AdminEmail string

	// Analytics
	AnalyticsWindowSize int

	// Worker
	WorkerID string

	// Consumer (Redis Stream)
	ConsumerBatchSize       int
	ConsumerBlockMS         int
	ConsumerMaxRetries      int
	ConsumerPendingCheckSec int

	// Intake throttle
	IntakeRatePerSec int
	IntakeBurst      int

	// Client profile cache
	ClientCacheTTLSec int

	// CORS
	AllowedOrigins []string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", ""),
		MongoDBURL:  getEnv("MONGODB_URL", ""),
		MongoDBName: getEnv("MONGODB_DATABASE", "churnpredictor"),
		RedisURL:    getEnv("REDIS_URL", ""),

		// OpenAI
		OpenAIAPIKeys:  getEnvSlice("OPENAI_API_KEYS", nil),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMMaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2048),
		LLMTemperature: getEnvFloat("LLM_TEMPERATURE", 0.7),

		// Gmail
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GmailRefreshToken:  getEnv("GMAIL_REFRESH_TOKEN", ""),

		// Analyzer
		AnalyzerIntervalSec: getEnvInt("ANALYZER_INTERVAL_SEC", 5),
		AnalyzerBatchSize:   getEnvInt("ANALYZER_BATCH_SIZE", 5),
		HistoryDepth:        getEnvInt("ANALYZER_HISTORY_DEPTH", 20),

		// Mailbox reader
		MailboxEnabled:     getEnvBool("MAILBOX_ENABLED", false),
		MailboxIntervalSec: getEnvInt("MAILBOX_INTERVAL_SEC", 30),

		// Alerting
		AdminEmail: getEnv("ADMIN_EMAIL", ""),

		// Analytics
		AnalyticsWindowSize: getEnvInt("ANALYTICS_WINDOW_SIZE", 100),

		// Worker
		WorkerID: getEnv("WORKER_ID", generateWorkerID()),

		// Consumer
		ConsumerBatchSize:       getEnvInt("CONSUMER_BATCH_SIZE", 10),
		ConsumerBlockMS:         getEnvInt("CONSUMER_BLOCK_MS", 5000),
		ConsumerMaxRetries:      getEnvInt("CONSUMER_MAX_RETRIES", 3),
		ConsumerPendingCheckSec: getEnvInt("CONSUMER_PENDING_CHECK_SEC", 30),

		// Intake throttle
		IntakeRatePerSec: getEnvInt("INTAKE_RATE_PER_SEC", 10),
		IntakeBurst:      getEnvInt("INTAKE_BURST", 20),

		// Client profile cache
		ClientCacheTTLSec: getEnvInt("CLIENT_CACHE_TTL_SEC", 300),

		// CORS
		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
	}

	// Single-key deployments can use the singular variable.
	if len(cfg.OpenAIAPIKeys) == 0 {
		if key := getEnv("OPENAI_API_KEY", ""); key != "" {
			cfg.OpenAIAPIKeys = []string{key}
		}
	}

	return cfg, nil
}

// AnalyzerInterval returns the analyzer poll interval.
func (c *Config) AnalyzerInterval() time.Duration {
	return time.Duration(c.AnalyzerIntervalSec) * time.Second
}

// MailboxInterval returns the mailbox poll interval.
func (c *Config) MailboxInterval() time.Duration {
	return time.Duration(c.MailboxIntervalSec) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
