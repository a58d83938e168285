package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	App      AppConfig
	Engine   EngineConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type ServerConfig struct {
	Port string
}

type AppConfig struct {
	LogLevel string
}

// EngineConfig carries the matching-engine tunables. The defaults are
// the documented ladder; changing them must preserve the ordering
// contract the scorer tests pin down.
type EngineConfig struct {
	GroupWindowDays int
	// BulkMinPercent gates unattended bulk acceptance: only
	// suggestions at or above this integer percent are eligible.
	BulkMinPercent int
}

func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	groupWindow, err := strconv.Atoi(getEnv("GROUP_WINDOW_DAYS", "3"))
	if err != nil || groupWindow <= 0 {
		groupWindow = 3
	}
	bulkMin, err := strconv.Atoi(getEnv("BULK_MIN_PERCENT", "90"))
	if err != nil || bulkMin <= 0 {
		bulkMin = 90
	}

	return &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "lending_recon"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Engine: EngineConfig{
			GroupWindowDays: groupWindow,
			BulkMinPercent:  bulkMin,
		},
	}, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
