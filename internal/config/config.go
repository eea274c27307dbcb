package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/chaos"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/msg"
	"github.com/gpapac/XE-Data-Engineer-Challenge-201905/internal/store"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is read when CONFIG_PATH is not set.
const DefaultPath = "config.yaml"

// Config holds configuration for the ingestor and its tools
type Config struct {
	// Service name, used as the logger name
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME" env-default:"classifieds-ingestor"`

	// Log level: debug, info, warn, error
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// Optional log file, written in addition to stderr
	LogFile string `yaml:"log_file" env:"LOG_FILE"`

	// gRPC health port
	GRPCPort int `yaml:"grpc_port" env:"PORT_GRPC" env-default:"50051"`

	// HTTP port for /healthz and /metrics
	HTTPPort int `yaml:"http_port" env:"PORT_HTTP" env-default:"8080"`

	// Sleep between two drain cycles
	RetryAfter time.Duration `yaml:"retry_after" env:"RETRY_AFTER" env-default:"20s"`

	Kafka msg.Config   `yaml:"kafka"`
	Store store.Config `yaml:"store"`
	Chaos chaos.Config `yaml:"chaos"`
}

// Load reads the YAML file at CONFIG_PATH (or DefaultPath) and lets
// environment variables override it. A missing file falls back to env only.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}

	cfg := &Config{}
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the ingestion loop cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.RetryAfter <= 0 {
		errs = append(errs, fmt.Errorf("retry_after must be positive, got %s", c.RetryAfter))
	}
	if err := c.Kafka.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// GRPCAddr returns the gRPC server address
func (c *Config) GRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}

// HTTPAddr returns the HTTP server address
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// Usage returns the environment variable help generated from the struct tags.
func Usage() string {
	text, err := cleanenv.GetDescription(&Config{}, nil)
	if err != nil {
		return err.Error()
	}
	return text
}
