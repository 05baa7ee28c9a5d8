// internal/infrastructure/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers
const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

// ResponseMargin is kept between the ingest deadline and the server write
// deadline for the upload log write and the response itself
const ResponseMargin = 15 * time.Second

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion string
	LogLevel   string

	// Server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// IngestTimeout bounds one pipeline run; it must end before WriteTimeout
	IngestTimeout time.Duration

	// Storage
	StoreDriver   string
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string
	// SeedAccountsFile is a YAML account list loaded into the memory store
	SeedAccountsFile string

	// Reference tables (airlines, airports); optional
	PostgresURI string

	// AI (Vertex AI publisher model)
	GCPProject          string
	GCPLocation         string
	GeminiAPIKey        string
	GeminiModel         string
	AICallTimeout       time.Duration
	ValidationThreshold float64

	// Quarantine
	QuarantineMaxAttachmentBytes int

	// Boundary
	WebhookToken   string
	OperatorTokens map[string]string
	MaxUploadBytes int64

	// Gmail
	GmailEnabled      bool
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string
	GmailPollInterval time.Duration
	GmailQuery        string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:   getEnv("APP_VERSION", "1.0.0"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnv("PORT", "8080"),
		ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 120)) * time.Second,

		StoreDriver:   strings.ToLower(getEnv("STORE_DRIVER", StoreMongo)),
		MongoURI:      getEnv("MONGODB_DSN", "mongodb://localhost:27017"),
		MongoDB:       getEnv("MONGO_DB", "tripmail"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		SeedAccountsFile: getEnv("SEED_ACCOUNTS_FILE", ""),

		PostgresURI: getEnv("POSTGRES_URI", ""),

		GCPProject:          getEnv("GCP_PROJECT", ""),
		GCPLocation:         getEnv("GCP_LOCATION", "us-central1"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		AICallTimeout:       time.Duration(getEnvAsInt("AI_CALL_TIMEOUT", 45)) * time.Second,
		ValidationThreshold: getEnvAsFloat("VALIDATION_THRESHOLD", 0.6),

		QuarantineMaxAttachmentBytes: getEnvAsInt("QUARANTINE_MAX_ATTACHMENT_BYTES", 8<<20),

		WebhookToken:   getEnv("WEBHOOK_TOKEN", ""),
		OperatorTokens: parseOperatorTokens(getEnv("OPERATOR_TOKENS", "")),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 20<<20)),

		GmailEnabled:      getEnvAsBool("GMAIL_ENABLED", false),
		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		GmailPollInterval: time.Duration(getEnvAsInt("GMAIL_POLL_INTERVAL", 60)) * time.Second,
		GmailQuery:        getEnv("GMAIL_QUERY", "in:inbox newer_than:7d"),
	}
	config.IngestTimeout = time.Duration(getEnvAsInt("INGEST_TIMEOUT", int((config.WriteTimeout-ResponseMargin)/time.Second))) * time.Second

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects combinations the server cannot start with
func (c *Config) Validate() error {
	if c.StoreDriver != StoreMongo && c.StoreDriver != StoreMemory {
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.ValidationThreshold <= 0 || c.ValidationThreshold > 1 {
		return fmt.Errorf("VALIDATION_THRESHOLD must be in (0, 1], got %v", c.ValidationThreshold)
	}
	if c.WriteTimeout > 0 && (c.IngestTimeout <= 0 || c.IngestTimeout+ResponseMargin > c.WriteTimeout) {
		return fmt.Errorf("INGEST_TIMEOUT (%s) must be positive and end %s before WRITE_TIMEOUT (%s)",
			c.IngestTimeout, ResponseMargin, c.WriteTimeout)
	}
	if c.GmailEnabled && c.GmailRefreshToken == "" {
		return fmt.Errorf("GMAIL_ENABLED requires GMAIL_REFRESH_TOKEN")
	}
	return nil
}

// parseOperatorTokens reads "token1:alice,token2:bob" into token -> operator
func parseOperatorTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		token, operator, ok := strings.Cut(strings.TrimSpace(pair), ":")
		token = strings.TrimSpace(token)
		operator = strings.TrimSpace(operator)
		if !ok || token == "" || operator == "" {
			continue
		}
		tokens[token] = operator
	}
	return tokens
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
