package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Queue     QueueConfig     `yaml:"queue"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Download  DownloadConfig  `yaml:"download"`
	History   HistoryConfig   `yaml:"history"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `yaml:"port" envconfig:"SERVER_PORT" default:"9280"`
	APIKey          string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"2m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT" default:"json"`
}

// QueueConfig holds download queue configuration.
type QueueConfig struct {
	MaxConcurrent int `yaml:"max_concurrent" envconfig:"QUEUE_MAX_CONCURRENT" default:"3"`
	MaxSize       int `yaml:"max_size" envconfig:"QUEUE_MAX_SIZE" default:"50"`
}

// RateLimitConfig holds per-user admission limits.
type RateLimitConfig struct {
	Requests int           `yaml:"requests" envconfig:"RATE_LIMIT_REQUESTS" default:"3"`
	Window   time.Duration `yaml:"window" envconfig:"RATE_LIMIT_WINDOW" default:"60s"`
}

// DownloadConfig holds media download configuration.
type DownloadConfig struct {
	Dir            string `yaml:"dir" envconfig:"DOWNLOAD_DIR" default:"/data/downloads"`
	MaxFileSize    int64  `yaml:"max_file_size" envconfig:"MAX_FILE_SIZE" default:"8388608"` // 8MiB
	DefaultQuality string `yaml:"default_quality" envconfig:"DEFAULT_QUALITY" default:"best[height<=720]"`
}

// HistoryConfig holds download history storage configuration.
type HistoryConfig struct {
	Path          string `yaml:"path" envconfig:"HISTORY_PATH" default:"/data/snagd.db"`
	RetentionDays int    `yaml:"retention_days" envconfig:"HISTORY_RETENTION_DAYS" default:"30"`
}

// ValidQualities is the closed set of accepted quality values. Anything
// else in a request or user preference is rejected.
var ValidQualities = []string{
	"best",
	"worst",
	"small",
	"best[height<=720]",
	"best[height<=480]",
	"best[height<=360]",
	"720p",
	"480p",
	"360p",
}

// IsValidQuality reports whether q is in the accepted quality set.
func IsValidQuality(q string) bool {
	for _, v := range ValidQualities {
		if q == v {
			return true
		}
	}
	return false
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	// Pick up a local .env file if one exists.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set and sane.
func (c *Config) Validate() error {
	if c.Server.APIKey == "" {
		return fmt.Errorf("API_KEY is required")
	}
	switch c.Log.Format {
	case "json", "text", "pretty":
	default:
		return fmt.Errorf("LOG_FORMAT must be json, text or pretty, got %q", c.Log.Format)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}
	if c.Queue.MaxConcurrent < 1 {
		return fmt.Errorf("QUEUE_MAX_CONCURRENT must be at least 1")
	}
	if c.Queue.MaxSize < 1 {
		return fmt.Errorf("QUEUE_MAX_SIZE must be at least 1")
	}
	if c.RateLimit.Requests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	if c.Download.Dir == "" {
		return fmt.Errorf("DOWNLOAD_DIR is required")
	}
	if c.Download.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive")
	}
	if !IsValidQuality(c.Download.DefaultQuality) {
		return fmt.Errorf("DEFAULT_QUALITY %q is not an accepted quality value", c.Download.DefaultQuality)
	}
	if c.History.RetentionDays < 0 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must not be negative")
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
