package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete tipline configuration
type Config struct {
	Version int    `json:"version" mapstructure:"version"`
	DataDir string `json:"dataDir" mapstructure:"dataDir"`

	Database DatabaseConfig `json:"database" mapstructure:"database"`
	Cache    CacheConfig    `json:"cache" mapstructure:"cache"`
	Server   ServerConfig   `json:"server" mapstructure:"server"`
	Auth     AuthConfig     `json:"auth" mapstructure:"auth"`
	Debug    DebugConfig    `json:"debug" mapstructure:"debug"`
	Locale   LocaleConfig   `json:"locale" mapstructure:"locale"`
	Logging  LoggingConfig  `json:"logging" mapstructure:"logging"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// CacheConfig contains result cache settings
type CacheConfig struct {
	Enabled           bool   `json:"enabled" mapstructure:"enabled"`
	Dir               string `json:"dir" mapstructure:"dir"`
	DefaultTtlSeconds int    `json:"defaultTtlSeconds" mapstructure:"defaultTtlSeconds"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr             string `json:"addr" mapstructure:"addr"`
	ReadTimeoutSecs  int    `json:"readTimeoutSecs" mapstructure:"readTimeoutSecs"`
	WriteTimeoutSecs int    `json:"writeTimeoutSecs" mapstructure:"writeTimeoutSecs"`
	IdleTimeoutSecs  int    `json:"idleTimeoutSecs" mapstructure:"idleTimeoutSecs"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	TokenTtlHours int `json:"tokenTtlHours" mapstructure:"tokenTtlHours"`
	BcryptCost    int `json:"bcryptCost" mapstructure:"bcryptCost"`
}

// DebugConfig contains debug console settings
type DebugConfig struct {
	Enabled     bool `json:"enabled" mapstructure:"enabled"`
	ConsoleSize int  `json:"consoleSize" mapstructure:"consoleSize"`
}

// LocaleConfig contains message catalog settings
type LocaleConfig struct {
	Language string `json:"language" mapstructure:"language"`
	Path     string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// configVersion is the current config schema version
const configVersion = 1

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: configVersion,
		DataDir: ".",
		Database: DatabaseConfig{
			Path: "tipline.db",
		},
		Cache: CacheConfig{
			Enabled:           true,
			Dir:               "querycache",
			DefaultTtlSeconds: 300,
		},
		Server: ServerConfig{
			Addr:             "127.0.0.1:8694",
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 15,
			IdleTimeoutSecs:  60,
		},
		Auth: AuthConfig{
			TokenTtlHours: 72,
			BcryptCost:    12,
		},
		Debug: DebugConfig{
			Enabled:     false,
			ConsoleSize: 200,
		},
		Locale: LocaleConfig{
			Language: "en",
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from <dataDir>/.tipline/config.json.
// A missing config file yields the defaults.
func LoadConfig(dataDir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(dataDir, ".tipline"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			cfg := DefaultConfig()
			cfg.DataDir = dataDir
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	cfg.DataDir = dataDir

	return cfg, nil
}

// Save writes the configuration to <dataDir>/.tipline/config.json
func (c *Config) Save(dataDir string) error {
	dir := filepath.Join(dataDir, ".tipline")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// DatabasePath resolves the database file path relative to the data directory
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.DataDir, ".tipline", c.Database.Path)
}

// CacheDir resolves the cache directory relative to the data directory
func (c *Config) CacheDir() string {
	if filepath.IsAbs(c.Cache.Dir) {
		return c.Cache.Dir
	}
	return filepath.Join(c.DataDir, ".tipline", c.Cache.Dir)
}

// TokenTTL returns the session token lifetime
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.Auth.TokenTtlHours) * time.Hour
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != configVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Cache.DefaultTtlSeconds < 0 {
		return &ConfigError{Field: "cache.defaultTtlSeconds", Message: "must be non-negative"}
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return &ConfigError{Field: "auth.bcryptCost", Message: "must be between 4 and 31"}
	}
	if c.Debug.ConsoleSize <= 0 {
		return &ConfigError{Field: "debug.consoleSize", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
