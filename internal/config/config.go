package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Payment  PaymentConfig
	Sweeper  SweeperConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// PaymentConfig holds the payment provider (Snap) configuration.
// ServerKey is the shared secret folded into webhook signatures and is never
// exposed to clients.
type PaymentConfig struct {
	Environment string // "sandbox" or "production"
	ServerKey   string
	ClientKey   string
	SnapBaseURL string // override for tests; derived from Environment when empty
	APIBaseURL  string // status API base; derived from Environment when empty
	FinishURL   string // redirect target after payment
	Timeout     time.Duration
}

// SweeperConfig controls the booking expiry sweeper.
type SweeperConfig struct {
	Interval  time.Duration // how often the cron fires
	BatchSize int           // max bookings reclaimed per run
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Payment: PaymentConfig{
			Environment: getEnv("PAYMENT_ENVIRONMENT", "sandbox"),
			ServerKey:   getEnv("PAYMENT_SERVER_KEY", ""),
			ClientKey:   getEnv("PAYMENT_CLIENT_KEY", ""),
			SnapBaseURL: getEnv("PAYMENT_SNAP_BASE_URL", ""),
			APIBaseURL:  getEnv("PAYMENT_API_BASE_URL", ""),
			FinishURL:   getEnv("PAYMENT_FINISH_URL", ""),
			Timeout:     time.Duration(getEnvAsInt("PAYMENT_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Sweeper: SweeperConfig{
			Interval:  time.Duration(getEnvAsInt("SWEEPER_INTERVAL_SECONDS", 300)) * time.Second,
			BatchSize: getEnvAsInt("SWEEPER_BATCH_SIZE", 100),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Server.Environment == "production" && c.Payment.ServerKey == "" {
		return fmt.Errorf("PAYMENT_SERVER_KEY is required in production mode")
	}

	if c.Payment.Environment != "sandbox" && c.Payment.Environment != "production" {
		return fmt.Errorf("invalid payment environment: %s (must be 'sandbox' or 'production')", c.Payment.Environment)
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
