package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config defines server configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Transport   TransportConfig   `yaml:"transport"`
	Storage     StorageConfig     `yaml:"storage"`
	Collections map[string]string `yaml:"collections"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type StorageConfig struct {
	Driver       string        `yaml:"driver"`
	Path         string        `yaml:"path"`
	RedisAddr    string        `yaml:"redis_addr"`
	RedisPrefix  string        `yaml:"redis_prefix"`
	QuotaBytes   int           `yaml:"quota_bytes"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: TransportStdio,
		},
		Storage: StorageConfig{
			Driver:       DriverSQLite,
			Path:         "notebox.db",
			RedisAddr:    "localhost:6379",
			RedisPrefix:  "notebox:",
			QuotaBytes:   5 << 20,
			PollInterval: time.Second,
		},
		Collections: map[string]string{
			"notes":   "local-notes:v1",
			"prompts": "prompt-storage:v1",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("NOTEBOX_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("NOTEBOX_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("NOTEBOX_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid NOTEBOX_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if mode := os.Getenv("NOTEBOX_TRANSPORT_MODE"); mode != "" {
		cfg.Transport.Mode = strings.ToLower(mode)
	}
	if driver := os.Getenv("NOTEBOX_STORAGE_DRIVER"); driver != "" {
		cfg.Storage.Driver = strings.ToLower(driver)
	}
	if dbPath := os.Getenv("NOTEBOX_DB_PATH"); dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if addr := os.Getenv("NOTEBOX_REDIS_ADDR"); addr != "" {
		cfg.Storage.RedisAddr = addr
	}
	if quotaStr := os.Getenv("NOTEBOX_QUOTA_BYTES"); quotaStr != "" {
		quota, err := strconv.Atoi(quotaStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid NOTEBOX_QUOTA_BYTES: %w", err)
		}
		cfg.Storage.QuotaBytes = quota
	}
	if intervalStr := os.Getenv("NOTEBOX_POLL_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid NOTEBOX_POLL_INTERVAL: %w", err)
		}
		cfg.Storage.PollInterval = interval
	}
	if level := os.Getenv("NOTEBOX_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("NOTEBOX_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("invalid transport mode %q (want stdio or http)", c.Transport.Mode)
	}
	switch c.Storage.Driver {
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("invalid storage driver %q (want sqlite, redis or memory)", c.Storage.Driver)
	}
	if c.Transport.Mode == TransportHTTP && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Storage.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Storage.PollInterval)
	}
	if len(c.Collections) == 0 {
		return fmt.Errorf("no collections configured")
	}
	keys := make(map[string]string, len(c.Collections))
	for name, key := range c.Collections {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(key) == "" {
			return fmt.Errorf("collection %q needs a non-empty name and key", name)
		}
		if other, ok := keys[key]; ok {
			return fmt.Errorf("collections %q and %q share key %q", other, name, key)
		}
		keys[key] = name
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
