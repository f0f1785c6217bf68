package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port              string
	DatabaseURL       string // optional: empty disables the audit/directory store
	RabbitMQURL       string // optional: empty runs single-node without the relay
	NodeID            string
	AdminToken        string
	AllowedOrigins    string
	GlobalBannedWords []string
	EvictionGrace     time.Duration
	Environment       string // development, staging, production
}

// Load loads configuration from environment variables and validates for production
func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		RabbitMQURL:       getEnv("RABBITMQ_URL", ""),
		NodeID:            getEnv("NODE_ID", ""),
		AdminToken:        getEnv("ADMIN_TOKEN", ""),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080"),
		GlobalBannedWords: splitWords(getEnv("GLOBAL_BANNED_WORDS", "")),
		EvictionGrace:     getDuration("ROOM_EVICTION_GRACE", 10*time.Minute),
		Environment:       getEnv("ENVIRONMENT", "development"),
	}

	if cfg.NodeID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "node"
		}
		cfg.NodeID = host
	}

	// Validate production configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	return cfg
}

// Validate checks configuration for security and correctness
func (c *Config) Validate() error {
	if c.EvictionGrace <= 0 {
		return fmt.Errorf("ROOM_EVICTION_GRACE must be positive")
	}

	// Production environment requires a strong admin credential
	if c.IsProduction() {
		if c.AdminToken == "" || c.AdminToken == "change-this-in-production" {
			return fmt.Errorf("ADMIN_TOKEN must be set to a strong random value in production")
		}

		if len(c.AdminToken) < 32 {
			return fmt.Errorf("ADMIN_TOKEN must be at least 32 characters in production (got %d)", len(c.AdminToken))
		}

		if c.AllowedOrigins != "" {
			log.Println("WARNING: Ensure ALLOWED_ORIGINS uses HTTPS in production")
		}
	} else if c.AdminToken == "" {
		// Development/staging: provide default if not set
		c.AdminToken = "dev-admin-token-not-for-production"
		log.Println("Using default ADMIN_TOKEN for development")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev" || c.Environment == ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid %s %q, using default %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitWords(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			words = append(words, p)
		}
	}
	return words
}
