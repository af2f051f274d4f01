package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Driver           string // "postgres" or "sqlite"
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	HTTPAddr string
	LogFile  string
}

// StorageConfig holds file-storage configuration.
type StorageConfig struct {
	UploadDir string
}

// LLMConfig holds extraction-provider configuration.
type LLMConfig struct {
	Provider     string // "mock", "openai", "gemini"
	Model        string
	APIKey       string
	GeminiModel  string
	GeminiAPIKey string
	Temperature  float32
	Timeout      time.Duration
}

// PipelineConfig holds batch-processing configuration.
type PipelineConfig struct {
	MaxConcurrent int
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "postgres"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
			LogFile:  getEnv("LOG_FILE", "./logs/app.log"),
		},
		Storage: StorageConfig{
			UploadDir: getEnv("UPLOAD_DIR", "./uploads"),
		},
		LLM: LLMConfig{
			Provider:     getEnv("LLM_PROVIDER", "mock"),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			Temperature:  getEnvAsFloat32("LLM_TEMPERATURE", 0.1),
			Timeout:      getEnvAsDuration("LLM_TIMEOUT", 2*time.Minute),
		},
		Pipeline: PipelineConfig{
			MaxConcurrent: getEnvAsInt("MAX_CONCURRENT", 4),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Database.Driver != "postgres" && c.Database.Driver != "sqlite" {
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be postgres or sqlite", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "mock":
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required for the openai provider", ErrInvalidInput)
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required for the gemini provider", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be mock, openai, or gemini", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		c.Pipeline.MaxConcurrent = 1
	}
	return nil
}
