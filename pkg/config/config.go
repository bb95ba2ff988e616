package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleProjectID    string
	GooglePubSubTopic  string
	GoogleCredentials  string

	MicrosoftClientID     string
	MicrosoftClientSecret string
	MicrosoftTenant       string

	// Public HTTPS base used as the Outlook subscription notification URL.
	WebhookBaseURL string
	// Secret echoed back by Graph in every notification; rejects spoofed posts.
	WebhookClientState string

	SyncJobTimeout    time.Duration
	StaleJobThreshold time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	jobTimeout := 5 * time.Minute
	if v := os.Getenv("SYNC_JOB_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			jobTimeout = parsed
		}
	}

	staleThreshold := 10 * time.Minute
	if v := os.Getenv("STALE_JOB_THRESHOLD"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			staleThreshold = parsed
		}
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres dbname=mailsync port=5432 sslmode=disable"),
		JWTSecret:   getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleProjectID:    getEnv("GOOGLE_PROJECT_ID", ""),
		GooglePubSubTopic:  getEnv("GOOGLE_PUBSUB_TOPIC", "gmail-updates"),
		GoogleCredentials:  getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		MicrosoftClientID:     getEnv("MICROSOFT_CLIENT_ID", ""),
		MicrosoftClientSecret: getEnv("MICROSOFT_CLIENT_SECRET", ""),
		MicrosoftTenant:       getEnv("MICROSOFT_TENANT", "common"),

		WebhookBaseURL:     getEnv("WEBHOOK_BASE_URL", "http://localhost:8080"),
		WebhookClientState: getEnv("WEBHOOK_CLIENT_STATE", ""),

		SyncJobTimeout:    jobTimeout,
		StaleJobThreshold: staleThreshold,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
