package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment     string
	DBHost          string
	DBPort          string
	DBUsername      string
	DBPassword      string
	DBName          string
	DBSSLMode       string
	Port            string
	AIBaseURL       string
	AIAPIKey        string
	AIModel         string
	AITemperature   float64
	HistoryCapacity int
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILQUILL_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:     env,
		DBHost:          getEnvOrDefault("MAILQUILL_DB_HOST", "localhost"),
		DBPort:          getEnvOrDefault("MAILQUILL_DB_PORT", "5432"),
		DBUsername:      getEnvOrDefault("MAILQUILL_DB_USER", "mailquill"),
		DBPassword:      os.Getenv("MAILQUILL_DB_PASSWORD"),
		DBName:          getEnvOrDefault("MAILQUILL_DB_NAME", "mailquill"),
		DBSSLMode:       getEnvOrDefault("MAILQUILL_DB_SSLMODE", "disable"),
		Port:            getEnvOrDefault("PORT", "8080"),
		AIBaseURL:       getEnvOrDefault("MAILQUILL_AI_BASE_URL", "https://api.openai.com/v1"),
		AIAPIKey:        os.Getenv("MAILQUILL_AI_API_KEY"),
		AIModel:         getEnvOrDefault("MAILQUILL_AI_MODEL", "gpt-4o-mini"),
		AITemperature:   getEnvFloatOrDefault("MAILQUILL_AI_TEMPERATURE", 0.7),
		HistoryCapacity: getEnvIntOrDefault("MAILQUILL_HISTORY_CAPACITY", 50),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.DBPassword == "" {
		return fmt.Errorf("MAILQUILL_DB_PASSWORD is required")
	}

	if c.AIAPIKey == "" {
		return fmt.Errorf("MAILQUILL_AI_API_KEY is required")
	}

	if c.HistoryCapacity <= 0 {
		return fmt.Errorf("MAILQUILL_HISTORY_CAPACITY must be positive")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
