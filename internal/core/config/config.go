package config

import (
	redisstore "github.com/quangtm/stashsync/internal/infra/redis"
	"github.com/quangtm/stashsync/internal/infra/storage/sqlite"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig      `yaml:"server"`
	API     APIConfig         `yaml:"api"`
	Redis   redisstore.Config `yaml:"redis"`
	Storage sqlite.Config     `yaml:"storage"`
	Logging LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds health/metrics server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// APIConfig holds settings for the stash service client.
type APIConfig struct {
	BaseURL        string   `yaml:"base_url"`
	Timeout        Duration `yaml:"timeout"`
	MaxRetries     int      `yaml:"max_retries"`
	RetryBaseDelay Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  Duration `yaml:"retry_max_delay"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
