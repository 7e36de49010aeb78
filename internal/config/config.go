package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	MaxConnections  int
	IdleConnections int
	MaxLifetime     time.Duration
}

// Config holds all configuration for the channel relay service
type Config struct {
	// Slack configuration
	SlackBotToken      string
	SlackSigningSecret string

	// Signature enforcement policy. Verification only runs when this is
	// true AND a signing secret is configured.
	EnforceSignatures bool

	// Logging configuration
	LogLevel  string
	LogFormat string

	// Server configuration
	ServerPort int
	ServerHost string

	// Database configuration
	Database DatabaseConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		EnforceSignatures: true,
		LogLevel:          "info",
		LogFormat:         "json",
		ServerPort:        8080,
		ServerHost:        "0.0.0.0",
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			Name:            "channel_relay",
			User:            "channel_relay",
			MaxConnections:  10,
			IdleConnections: 2,
			MaxLifetime:     time.Hour,
		},
	}

	var err error

	cfg.SlackBotToken = os.Getenv("SLACK_BOT_TOKEN")
	if cfg.SlackBotToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN is required")
	}

	// Optional: when absent, inbound signature verification is disabled.
	cfg.SlackSigningSecret = os.Getenv("SLACK_SIGNING_SECRET")

	if val := os.Getenv("ENFORCE_SIGNATURES"); val != "" {
		cfg.EnforceSignatures, err = strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("invalid ENFORCE_SIGNATURES: %v", err)
		}
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}

	if val := os.Getenv("LOG_FORMAT"); val != "" {
		cfg.LogFormat = val
	}

	if val := os.Getenv("SERVER_PORT"); val != "" {
		cfg.ServerPort, err = strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT: %v", err)
		}
	}

	if val := os.Getenv("SERVER_HOST"); val != "" {
		cfg.ServerHost = val
	}

	// Database configuration
	if val := os.Getenv("DATABASE_URL"); val != "" {
		cfg.Database.URL = val
	}

	if val := os.Getenv("DB_HOST"); val != "" {
		cfg.Database.Host = val
	}

	if val := os.Getenv("DB_PORT"); val != "" {
		cfg.Database.Port, err = strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_PORT: %v", err)
		}
	}

	if val := os.Getenv("DB_NAME"); val != "" {
		cfg.Database.Name = val
	}

	if val := os.Getenv("DB_USER"); val != "" {
		cfg.Database.User = val
	}

	if val := os.Getenv("DB_PASSWORD"); val != "" {
		cfg.Database.Password = val
	}

	if val := os.Getenv("DB_MAX_CONNECTIONS"); val != "" {
		cfg.Database.MaxConnections, err = strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_MAX_CONNECTIONS: %v", err)
		}
	}

	if val := os.Getenv("DB_IDLE_CONNECTIONS"); val != "" {
		cfg.Database.IdleConnections, err = strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_IDLE_CONNECTIONS: %v", err)
		}
	}

	if val := os.Getenv("DB_MAX_LIFETIME"); val != "" {
		cfg.Database.MaxLifetime, err = time.ParseDuration(val)
		if err != nil {
			return nil, fmt.Errorf("invalid DB_MAX_LIFETIME: %v", err)
		}
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.SlackBotToken == "" {
		return fmt.Errorf("slack bot token is required")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Database.MaxConnections <= 0 {
		return fmt.Errorf("database max connections must be positive")
	}
	return nil
}

// SignatureVerificationEnabled reports whether inbound Slack requests
// will be checked against the signing secret.
func (c *Config) SignatureVerificationEnabled() bool {
	return c.EnforceSignatures && c.SlackSigningSecret != ""
}
