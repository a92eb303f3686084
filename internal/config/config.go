// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

const defaultClientTokenSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"APP_ENV"`
	ClientTokenSecret string        `mapstructure:"CLIENT_TOKEN_SECRET"`
	ClientTokenTTL    time.Duration `mapstructure:"CLIENT_TOKEN_TTL"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	StorageDriver     string        `mapstructure:"STORAGE_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSLMODE"`
	SQLitePath        string        `mapstructure:"SQLITE_PATH"`
	AllowedOrigins    string        `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags      string        `mapstructure:"FEATURE_FLAGS"`

	SignInDelay  time.Duration `mapstructure:"SIGNIN_DELAY"`
	CatalogDelay time.Duration `mapstructure:"CATALOG_DELAY"`
	CatalogSeed  int64         `mapstructure:"CATALOG_SEED"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	viper.SetDefault("PORT", "8375")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("CLIENT_TOKEN_SECRET", defaultClientTokenSecret)
	viper.SetDefault("CLIENT_TOKEN_TTL", "720h")
	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("STORAGE_DRIVER", StorageMemory)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "tubeclone")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("SQLITE_PATH", "tubeclone.db")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "shorts=on,simulated_latency=on")
	viper.SetDefault("SIGNIN_DELAY", "1s")
	viper.SetDefault("CATALOG_DELAY", "500ms")
	viper.SetDefault("CATALOG_SEED", 0)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.StorageDriver = strings.ToLower(strings.TrimSpace(config.StorageDriver))
	config.DBSSLMode = strings.ToLower(strings.TrimSpace(config.DBSSLMode))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// IsProduction reports whether the service runs with production strictness.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// RateLimitsEnabled reports whether per-client request budgets are enforced.
// Development and test servers run without them.
func (c *Config) RateLimitsEnabled() bool {
	switch c.Env {
	case "", "development", "test":
		return false
	}
	return true
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.ClientTokenSecret == "" {
		return errors.New("CLIENT_TOKEN_SECRET is required")
	}
	if c.SignInDelay < 0 || c.CatalogDelay < 0 {
		return errors.New("SIGNIN_DELAY and CATALOG_DELAY must not be negative")
	}

	switch c.StorageDriver {
	case StorageMemory, StorageRedis, StoragePostgres, StorageSQLite:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.StorageDriver == StorageRedis && c.RedisURL == "" {
		return errors.New("REDIS_URL is required when STORAGE_DRIVER=redis")
	}

	if c.IsProduction() {
		if c.ClientTokenSecret == defaultClientTokenSecret {
			return errors.New("CLIENT_TOKEN_SECRET must be changed from the default value in production")
		}
		if len(c.ClientTokenSecret) < 32 {
			return errors.New("CLIENT_TOKEN_SECRET must be at least 32 characters in production")
		}
		if c.StorageDriver == StorageMemory {
			return errors.New("STORAGE_DRIVER=memory is not allowed in production")
		}
		if c.StorageDriver == StoragePostgres && (c.DBPassword == "password" || c.DBPassword == "") {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.ClientTokenSecret) < 32 {
		log.Println("WARNING: CLIENT_TOKEN_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
