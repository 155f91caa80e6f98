package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Session SessionConfig `yaml:"session"`
	Polling PollingConfig `yaml:"polling"`
	Roster  RosterConfig  `yaml:"roster"`
	CORS    CORSConfig    `yaml:"cors"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// BackendConfig holds the external admin API configuration
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SessionConfig holds credential store configuration.
// When RedisAddr is empty the server falls back to the in-memory store.
type SessionConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLHours      int    `yaml:"ttl_hours"`
}

// TTL returns the session time-to-live as a duration
func (c SessionConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// PollingConfig holds notification polling configuration
type PollingConfig struct {
	IntervalSeconds   int `yaml:"interval_seconds"`
	NotificationLimit int `yaml:"notification_limit"`
}

// Interval returns the polling interval as a duration
func (c PollingConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// RosterConfig holds customer roster configuration
type RosterConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	DetailWorkers   int `yaml:"detail_workers"`
}

// CORSConfig holds allowed origins for the dashboard frontend
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
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
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:4000"
	}
	if cfg.Backend.TimeoutSeconds == 0 {
		cfg.Backend.TimeoutSeconds = 30
	}
	if cfg.Session.TTLHours == 0 {
		cfg.Session.TTLHours = 24
	}
	if cfg.Polling.IntervalSeconds == 0 {
		cfg.Polling.IntervalSeconds = 10
	}
	if cfg.Polling.NotificationLimit == 0 {
		cfg.Polling.NotificationLimit = 50
	}
	if cfg.Roster.DefaultPageSize == 0 {
		cfg.Roster.DefaultPageSize = 10
	}
	if cfg.Roster.DetailWorkers == 0 {
		cfg.Roster.DetailWorkers = 8
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

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
	if baseURL := os.Getenv("ADMIN_API_BASE_URL"); baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if addr := os.Getenv("SESSION_REDIS_ADDR"); addr != "" {
		cfg.Session.RedisAddr = addr
	}
	if password := os.Getenv("SESSION_REDIS_PASSWORD"); password != "" {
		cfg.Session.RedisPassword = password
	}
	if db := os.Getenv("SESSION_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Session.RedisDB = n
		}
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = n
		}
	}

	return cfg, nil
}
