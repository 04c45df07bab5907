package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/unisonhq/unison-comms/internal/logger"
)

// Config is the environment-driven configuration surface of the gateway.
// The core only reads it at construction time.
type Config struct {
	Environment string

	// Remote mail provider selection and credentials.
	Provider         string
	GmailUser        string
	GmailAppPassword string
	IMAPHost         string
	SMTPHost         string

	// Local encrypted store.
	UnisonStorePath string
	UnisonKeyBase64 string

	// HTTP surface.
	Host          string
	Port          string
	AllowNonLocal bool
}

// NewConfig loads configuration from the environment, reading a .env
// file first in development. Nothing here is required: missing remote
// credentials select the stub provider, and a missing store key is
// generated at adapter construction.
func NewConfig() *Config {
	env := os.Getenv("COMMS_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			logger.Get().Infow(".env file not found, using environment variables")
		}
	}

	return &Config{
		Environment:      env,
		Provider:         getEnvOrDefault("COMMS_PROVIDER", "stub"),
		GmailUser:        os.Getenv("COMMS_GMAIL_USER"),
		GmailAppPassword: os.Getenv("COMMS_GMAIL_APP_PASSWORD"),
		IMAPHost:         getEnvOrDefault("COMMS_IMAP_HOST", "imap.gmail.com:993"),
		SMTPHost:         getEnvOrDefault("COMMS_SMTP_HOST", "smtp.gmail.com:587"),
		UnisonStorePath:  os.Getenv("COMMS_UNISON_STORE_PATH"),
		UnisonKeyBase64:  os.Getenv("COMMS_UNISON_KEY"),
		Host:             getEnvOrDefault("COMMS_HOST", "127.0.0.1"),
		Port:             getEnvOrDefault("COMMS_PORT", "8080"),
		AllowNonLocal:    isTruthy(os.Getenv("COMMS_UNSAFE_ALLOW_NONLOCAL")),
	}
}

// Addr returns the host:port the HTTP surface binds to.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// IsLoopback reports whether the configured host is a loopback address.
func (c *Config) IsLoopback() bool {
	switch c.Host {
	case "127.0.0.1", "::1", "localhost":
		return true
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func isTruthy(value string) bool {
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
