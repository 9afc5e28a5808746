// Package config loads escrowly settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	LedgerMemory = "memory"
	LedgerSQL    = "sql"
	LedgerRedis  = "redis"
)

// DefaultUserID is the viewer used when ESCROWLY_USER_ID is unset.
const DefaultUserID = "00000000-0000-0000-0000-000000000001"

// DefaultEngineID is the built-in escrow priority engine.
const DefaultEngineID = "escrowly.priority.escrow"

// ErrInvalidConfig wraps every validation failure returned by Load.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	UserID   string
	Role     string

	// Storage
	DatabaseURL   string
	SQLitePath    string
	RedisURL      string
	LedgerBackend string

	// Events
	RabbitMQURL string

	// Priority
	PriorityEngineID string
	TxConfirmDelay   time.Duration

	// API
	APIAddr        string
	APIJWTSecret   string
	APICORSOrigins []string

	// MCP
	MCPAddr      string
	MCPAuthToken string
}

// Load loads configuration from environment variables, reading .env first
// when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		UserID:   getEnv("ESCROWLY_USER_ID", DefaultUserID),
		Role:     strings.ToLower(getEnv("ESCROWLY_ROLE", "client")),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		SQLitePath:    getEnv("SQLITE_PATH", ""),
		RedisURL:      getEnv("REDIS_URL", ""),
		LedgerBackend: strings.ToLower(getEnv("LEDGER_BACKEND", LedgerSQL)),

		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		PriorityEngineID: getEnv("PRIORITY_ENGINE_ID", DefaultEngineID),
		TxConfirmDelay:   getDurationEnv("TX_CONFIRM_DELAY", 1500*time.Millisecond),

		APIAddr:        getEnv("API_ADDR", "0.0.0.0:8080"),
		APIJWTSecret:   getEnv("API_JWT_SECRET", ""),
		APICORSOrigins: getListEnv("API_CORS_ORIGINS", []string{"*"}),

		MCPAddr:      getEnv("MCP_ADDR", "0.0.0.0:8082"),
		MCPAuthToken: getEnv("MCP_AUTH_TOKEN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values Load cannot default its way out of.
func (c *Config) Validate() error {
	if _, err := uuid.Parse(c.UserID); err != nil {
		return fmt.Errorf("%w: ESCROWLY_USER_ID %q is not a UUID", ErrInvalidConfig, c.UserID)
	}
	if c.Role != "client" && c.Role != "contractor" {
		return fmt.Errorf("%w: ESCROWLY_ROLE must be client or contractor, got %q", ErrInvalidConfig, c.Role)
	}
	switch c.LedgerBackend {
	case LedgerMemory, LedgerSQL:
	case LedgerRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: LEDGER_BACKEND=redis requires REDIS_URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown LEDGER_BACKEND %q", ErrInvalidConfig, c.LedgerBackend)
	}
	if c.TxConfirmDelay < 0 {
		return fmt.Errorf("%w: TX_CONFIRM_DELAY cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// ViewerID returns the configured user as a UUID. Load has already validated it.
func (c *Config) ViewerID() uuid.UUID {
	id, _ := uuid.Parse(c.UserID)
	return id
}

// LocalMode reports whether storage falls back to the local SQLite file.
func (c *Config) LocalMode() bool {
	return c.DatabaseURL == ""
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
