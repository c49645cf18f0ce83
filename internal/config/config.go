package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ignite/affiliate-monitor/internal/alert"
	"github.com/ignite/affiliate-monitor/internal/analyzer"
	"github.com/ignite/affiliate-monitor/internal/optimizer"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig          `yaml:"server"`
	Ingest  IngestConfig          `yaml:"ingest"`
	Storage StorageConfig         `yaml:"storage"`
	Alerts  alert.Thresholds      `yaml:"alerts"`
	Scoring analyzer.Config       `yaml:"scoring"`
	Budget  optimizer.Constraints `yaml:"budget"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// IngestConfig holds S3 export ingestion settings
type IngestConfig struct {
	Enabled         bool   `yaml:"enabled"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Region        string `yaml:"s3_region"`
	S3Prefix        string `yaml:"s3_prefix"`
	AWSProfile      string `yaml:"aws_profile"`
	IntervalMinutes int    `yaml:"interval_minutes"`
}

// StorageConfig holds Redis cache settings
type StorageConfig struct {
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	ResultTTLHours int    `yaml:"result_ttl_hours"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Ingest.S3Region == "" {
		cfg.Ingest.S3Region = "ap-southeast-1"
	}
	if cfg.Ingest.IntervalMinutes == 0 {
		cfg.Ingest.IntervalMinutes = 15
	}
	if cfg.Storage.RedisAddr == "" {
		cfg.Storage.RedisAddr = "localhost:6379"
	}
	if cfg.Storage.ResultTTLHours == 0 {
		cfg.Storage.ResultTTLHours = 24
	}
	// Alert, scoring and budget sections default at point of use: the
	// generator, analyzer and optimizer all treat zero values as "use the
	// stock defaults", so an empty YAML section is valid.

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if bucket := os.Getenv("INGEST_S3_BUCKET"); bucket != "" {
		cfg.Ingest.S3Bucket = bucket
		cfg.Ingest.Enabled = true
	}
	if region := os.Getenv("INGEST_S3_REGION"); region != "" {
		cfg.Ingest.S3Region = region
	}
	if profile := os.Getenv("AWS_PROFILE_OVERRIDE"); profile != "" {
		cfg.Ingest.AWSProfile = profile
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Storage.RedisAddr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Storage.RedisPassword = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Storage.RedisDB = n
		}
	}
	if budget := os.Getenv("BUDGET_TOTAL"); budget != "" {
		if b, err := strconv.ParseFloat(budget, 64); err == nil {
			cfg.Budget.TotalBudget = b
		}
	}

	return cfg, nil
}
