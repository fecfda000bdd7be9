package config

import (
	"os"
	"strconv"

	"github.com/apex/log"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the coastal alert service
type Config struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBMaxConns int

	// Server configuration
	Port      string
	UploadDir string

	// SMS transport configuration. The service falls back to simulation
	// mode when the account SID is absent or not a real Twilio SID.
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// Authority email notification
	SendGridAPIKey string
	SendGridFrom   string
	AuthorityEmail string

	// Token required on operator endpoints (status, response, verify)
	OperatorToken string

	// RecipientSource selects the locator backing: "subscribers" queries the
	// subscriber table, anything else uses the population-density simulation.
	RecipientSource string
}

// Load loads configuration from environment variables. A local .env file
// is read first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Info("Loaded configuration from .env file")
	}

	config := &Config{
		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "server"),
		DBPassword: getEnv("DB_PASSWORD", "secret"),
		DBName:     getEnv("DB_NAME", "coastal_alerts"),
		DBMaxConns: getIntEnv("DB_MAX_CONNS", 10),

		// Server defaults
		Port:      getEnv("PORT", "8080"),
		UploadDir: getEnv("UPLOAD_DIR", "uploads/community-reports"),

		// SMS transport
		TwilioAccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		// Notifications
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		SendGridFrom:   getEnv("SENDGRID_FROM_EMAIL", "alerts@coastal.local"),
		AuthorityEmail: getEnv("AUTHORITY_EMAIL", ""),

		OperatorToken: getEnv("OPERATOR_TOKEN", ""),

		RecipientSource: getEnv("RECIPIENT_SOURCE", "simulation"),
	}

	return config
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnv gets an integer environment variable or returns a default value
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
