package config

import (
	"os"
)

// Config holds all configuration for the settlement service
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Kavenegar KavenegarConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// ServerConfig holds server configuration
type ServerConfig struct {
	HTTPPort    string
	MetricsPort string
}

// KavenegarConfig holds SMS gateway configuration. An empty API key
// disables outbound SMS and falls back to log-only confirmations.
type KavenegarConfig struct {
	APIKey string
	Sender string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "3306"),
			User:     getEnv("DB_USER", "root"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_DATABASE", "amlakpro"),
		},
		Server: ServerConfig{
			HTTPPort:    getEnv("HTTP_PORT", "8080"),
			MetricsPort: getEnv("METRICS_PORT", "9090"),
		},
		Kavenegar: KavenegarConfig{
			APIKey: getEnv("KAVENEGAR_API_KEY", ""),
			Sender: getEnv("KAVENEGAR_SENDER", ""),
		},
	}
}

// DSN builds the MySQL connection string.
func (c DatabaseConfig) DSN() string {
	return c.User + ":" + c.Password + "@tcp(" + c.Host + ":" + c.Port + ")/" + c.Database +
		"?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci"
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
