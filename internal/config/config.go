// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port      string
	Env       string // "development", "staging", "production"
	LogLevel  string
	LogFormat string // "json" or "text"

	// Database
	DatabaseURL string // PostgreSQL audit store (optional, in-memory only if not set)

	// Scoring settings
	FlagThreshold    float64 // Score at or above this is flagged for review
	DeclineThreshold float64 // Score at or above this is declined outright
	MaxAmount        float64 // Largest amount accepted for scoring
	ExplanationTopN  int     // Max feature contributions returned per explanation

	// History settings
	HistorySize        int // Ring buffer capacity for the transaction ledger
	HistoryReturnLimit int // Default number of transactions returned by history queries

	// Security
	CORSOrigins  []string
	RateLimitRPM int
	AdminSecret  string // Guards destructive admin routes (history clear)
}

// Defaults
const (
	DefaultPort               = "8080"
	DefaultEnv                = "development"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultFlagThreshold      = 0.7
	DefaultDeclineThreshold   = 0.9
	DefaultMaxAmount          = 1_000_000
	DefaultExplanationTopN    = 5
	DefaultHistorySize        = 1000
	DefaultHistoryReturnLimit = 20
	DefaultRateLimit          = 120
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", DefaultPort),
		Env:                getEnv("ENV", DefaultEnv),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		LogFormat:          getEnv("LOG_FORMAT", DefaultLogFormat),
		DatabaseURL:        os.Getenv("DATABASE_URL"), // Optional, memory-only if not set
		FlagThreshold:      getEnvFloat("FLAG_THRESHOLD", DefaultFlagThreshold),
		DeclineThreshold:   getEnvFloat("DECLINE_THRESHOLD", DefaultDeclineThreshold),
		MaxAmount:          getEnvFloat("MAX_AMOUNT", DefaultMaxAmount),
		ExplanationTopN:    getEnvInt("EXPLANATION_TOP_N", DefaultExplanationTopN),
		HistorySize:        getEnvInt("HISTORY_SIZE", DefaultHistorySize),
		HistoryReturnLimit: getEnvInt("HISTORY_RETURN_LIMIT", DefaultHistoryReturnLimit),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"*"}),
		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", DefaultRateLimit),
		AdminSecret:        os.Getenv("ADMIN_SECRET"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.FlagThreshold <= 0 || c.FlagThreshold >= 1 {
		return fmt.Errorf("FLAG_THRESHOLD must be in (0, 1), got %v", c.FlagThreshold)
	}
	if c.DeclineThreshold <= 0 || c.DeclineThreshold > 1 {
		return fmt.Errorf("DECLINE_THRESHOLD must be in (0, 1], got %v", c.DeclineThreshold)
	}
	if c.FlagThreshold >= c.DeclineThreshold {
		return fmt.Errorf("FLAG_THRESHOLD (%v) must be below DECLINE_THRESHOLD (%v)",
			c.FlagThreshold, c.DeclineThreshold)
	}
	if c.MaxAmount <= 0 {
		return fmt.Errorf("MAX_AMOUNT must be positive, got %v", c.MaxAmount)
	}
	if c.HistorySize <= 0 {
		return fmt.Errorf("HISTORY_SIZE must be positive, got %d", c.HistorySize)
	}
	if c.HistoryReturnLimit <= 0 {
		return fmt.Errorf("HISTORY_RETURN_LIMIT must be positive, got %d", c.HistoryReturnLimit)
	}
	if c.ExplanationTopN <= 0 {
		return fmt.Errorf("EXPLANATION_TOP_N must be positive, got %d", c.ExplanationTopN)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
