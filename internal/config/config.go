package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Environment
	RunMode     string // Set via flag, not env
	Environment string // "production", "staging", "testing" - goes into the sender address

	// MongoDB
	MongoURI    string
	MongoDbName string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Server
	ApiPort string

	// Rails backend
	RailsAPIBaseURL string
	RailsAPIKey     string

	// Shared secret the Rails backend uses to call us
	ServiceAPIKey string

	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// AWS / SES
	AwsAccessKeyID     string
	AwsSecretAccessKey string
	AwsRegion          string
	AwsEndpointURL     string // LocalStack override, empty in production

	// Email routing
	EmailDomain  string // Domain emails are sent from and replies arrive at
	SmtpHost     string
	SmtpPort     int
	SmtpUsername string
	SmtpPassword string

	// Conversation defaults
	MaxAttempts     int
	InboundDedupTTL time.Duration

	// Rate Limiting Defaults
	RateLimitBucketSize int
	RateLimitRefillRate int // tokens per second
}

// FromAddress returns the sending address for the configured environment,
// e.g. "aime-production@groupize.com".
func (c *Config) FromAddress() string {
	return fmt.Sprintf("aime-%s@%s", c.Environment, c.EmailDomain)
}

// ReplyToAddress returns the plus-addressed reply-to for a conversation.
// Inbound mail to this address is routed back to the conversation.
func (c *Config) ReplyToAddress(conversationID string) string {
	return fmt.Sprintf("aime-%s+%s@%s", c.Environment, conversationID, c.EmailDomain)
}

// Load configuration from environment variables.
// RunMode needs to be passed in as it comes from command-line flags.
func Load(runMode string) (*Config, error) {
	// Load .env file, ignoring errors if it doesn't exist
	godotenv.Load()

	cfg := &Config{
		RunMode: runMode, // Set from flag
	}

	var err error

	// Helper function to get env var or default
	getEnv := func(key, defaultValue string) string {
		if value, exists := os.LookupEnv(key); exists {
			return value
		}
		return defaultValue
	}

	// Helper function to get required env var
	getRequiredEnv := func(key string) (string, error) {
		value, exists := os.LookupEnv(key)
		if !exists {
			return "", fmt.Errorf("missing required environment variable: %s", key)
		}
		return value, nil
	}

	cfg.Environment = getEnv("ENVIRONMENT", "testing")

	cfg.MongoURI, err = getRequiredEnv("MONGO_URI")
	if err != nil {
		return nil, err
	}
	cfg.MongoDbName = getEnv("MONGO_DB_NAME", "aime_planner")
	cfg.RedisAddr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB, err = strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg.ApiPort = getEnv("API_PORT", "8080")

	cfg.RailsAPIBaseURL, err = getRequiredEnv("RAILS_API_BASE_URL")
	if err != nil {
		return nil, err
	}
	cfg.RailsAPIKey, err = getRequiredEnv("RAILS_API_KEY")
	if err != nil {
		return nil, err
	}
	cfg.ServiceAPIKey, err = getRequiredEnv("SERVICE_API_KEY")
	if err != nil {
		return nil, err
	}

	cfg.OpenAIAPIKey, err = getRequiredEnv("OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}
	cfg.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", "")
	cfg.OpenAIModel = getEnv("OPENAI_MODEL", "gpt-4-turbo-preview")

	cfg.AwsAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AwsSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")
	cfg.AwsRegion = getEnv("AWS_REGION", "us-east-1")
	cfg.AwsEndpointURL = getEnv("AWS_ENDPOINT_URL", "")

	cfg.EmailDomain = getEnv("EMAIL_DOMAIN", "groupize.com")
	cfg.SmtpHost = getEnv("SMTP_HOST", "")
	cfg.SmtpPort, err = strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}
	cfg.SmtpUsername = getEnv("SMTP_USERNAME", "")
	cfg.SmtpPassword = getEnv("SMTP_PASSWORD", "")

	cfg.MaxAttempts, err = strconv.Atoi(getEnv("MAX_ATTEMPTS", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_ATTEMPTS: %w", err)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", cfg.MaxAttempts)
	}

	dedupTTLHours, err := strconv.Atoi(getEnv("INBOUND_DEDUP_TTL_HOURS", "168"))
	if err != nil {
		return nil, fmt.Errorf("invalid INBOUND_DEDUP_TTL_HOURS: %w", err)
	}
	cfg.InboundDedupTTL = time.Duration(dedupTTLHours) * time.Hour

	cfg.RateLimitBucketSize, err = strconv.Atoi(getEnv("RATE_LIMIT_BUCKET_SIZE", "20"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BUCKET_SIZE: %w", err)
	}
	cfg.RateLimitRefillRate, err = strconv.Atoi(getEnv("RATE_LIMIT_REFILL_RATE", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_REFILL_RATE: %w", err)
	}

	return cfg, nil
}
