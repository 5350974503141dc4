package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every externally provided setting, resolved once at startup.
// Nothing in the rest of the codebase reads the environment directly.
type Config struct {
	Addr     string
	LogLevel string

	// Primary provider (OpenRouter-compatible chat completions).
	APIKey           string
	APIKeySecretName string
	BaseURL          string
	RefererURL       string
	AppTitle         string

	// Per-task model selection. DefaultModel is used unless a task-specific
	// override is set.
	DefaultModel  string
	CreativeModel string
	FactualModel  string

	// Fallback provider.
	BedrockEnabled bool
	BedrockModel   string
	AWSRegion      string

	// Rate limiting.
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Optional infrastructure.
	RedisURL        string
	DatabaseURL     string
	SNSTopicArn     string
	UsageQueueURL   string
	OTLPEndpoint    string
	CacheTTL        time.Duration
	ShutdownTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Addr:             getEnv("ADDR", ":8085"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		APIKey:           getEnv("OPENROUTER_API_KEY", ""),
		APIKeySecretName: getEnv("OPENROUTER_API_KEY_SECRET", ""),
		BaseURL:          getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		RefererURL:       getEnv("SITE_URL", "https://toolfinder.app"),
		AppTitle:         getEnv("APP_TITLE", "ToolFinder"),
		DefaultModel:     getEnv("DEFAULT_MODEL", "openai/gpt-4o-mini"),
		CreativeModel:    getEnv("CREATIVE_MODEL", ""),
		FactualModel:     getEnv("FACTUAL_MODEL", ""),
		BedrockEnabled:   getEnv("BEDROCK_FALLBACK", "false") == "true",
		BedrockModel:     getEnv("BEDROCK_MODEL", "anthropic.claude-3-haiku-20240307-v1:0"),
		AWSRegion:        getEnv("AWS_REGION", ""),
		RateLimitMax:     getIntEnv("RATE_LIMIT_MAX", 60),
		RateLimitWindow:  getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		RedisURL:         getEnv("REDIS_URL", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		SNSTopicArn:      getEnv("SNS_TOPIC_ARN", ""),
		UsageQueueURL:    getEnv("USAGE_QUEUE_URL", ""),
		OTLPEndpoint:     getEnv("OTLP_ENDPOINT", ""),
		CacheTTL:         getDurationEnv("CACHE_TTL", 10*time.Minute),
		ShutdownTimeout:  getDurationEnv("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// ModelFor returns the model identifier for a task-specific override, falling
// back to the default model when no override is configured.
func (c *Config) ModelFor(override string) string {
	if override != "" {
		return override
	}
	return c.DefaultModel
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
