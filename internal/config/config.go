package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigDir  = ".flowchat"
	DefaultConfigFile = "config.yaml"
	DefaultEnvFile    = ".env"
)

// Environment variables that override values from the config file
const (
	EnvBackendURL = "FLOWCHAT_BACKEND_URL"
	EnvLocale     = "FLOWCHAT_LOCALE"
	EnvLogLevel   = "FLOWCHAT_LOG_LEVEL"
	EnvArchive    = "FLOWCHAT_ARCHIVE"
)

// Config represents the application configuration
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Display DisplayConfig `yaml:"display"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig points at the service that answers user messages.
// An empty URL keeps the client fully local.
type BackendConfig struct {
	URL         string        `yaml:"url"`
	Timeout     time.Duration `yaml:"timeout"`
	SendHistory bool          `yaml:"send_history"`
}

type DisplayConfig struct {
	// Locale used for message times, e.g. "en-US" or "de_DE.UTF-8".
	// Empty means LC_ALL / LC_TIME / LANG.
	Locale   string `yaml:"locale"`
	Markdown bool   `yaml:"markdown"`
}

type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type LoggingConfig struct {
	Level      string `yaml:"level"`
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:         "",
			Timeout:     60 * time.Second,
			SendHistory: true,
		},
		Display: DisplayConfig{
			Locale:   "",
			Markdown: false,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    "", // resolved to ~/.flowchat/db
		},
		Logging: LoggingConfig{
			Level:      "info",
			Path:       "", // resolved to ~/.flowchat/logs/flowchat.log
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// ConfigDir returns ~/.flowchat
func ConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultConfigDir), nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, DefaultConfigFile), nil
}

// Load loads the configuration from the default location, creating it if it
// does not exist, then applies .env and environment overrides.
func Load() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from path, creating a default file there if
// none exists.
func LoadFrom(path string) (*Config, error) {
	cfg, err := readOrCreate(path)
	if err != nil {
		return nil, err
	}

	if err := loadDotEnv(DefaultEnvFile); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func readOrCreate(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		cfg := DefaultConfig()
		if err := Save(cfg, path); err != nil {
			// Not being able to write the file is not fatal
			return cfg, nil
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unset keys keep their defaults
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// loadDotEnv loads KEY=value pairs from a .env file without overriding
// variables already set in the environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides config values from FLOWCHAT_* environment variables
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvBackendURL); ok {
		c.Backend.URL = v
	}
	if v, ok := os.LookupEnv(EnvLocale); ok {
		c.Display.Locale = v
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv(EnvArchive); ok {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s must be a boolean, got %q", EnvArchive, v)
		}
		c.Archive.Enabled = enabled
	}
	return nil
}

func (c *Config) resolvePaths(configDir string) {
	if c.Archive.Path == "" {
		c.Archive.Path = filepath.Join(configDir, "db")
	}
	if c.Logging.Path == "" {
		c.Logging.Path = filepath.Join(configDir, "logs", "flowchat.log")
	}
}

// Save writes the configuration to path
func Save(cfg *Config, path string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("cannot save invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if c.Backend.URL != "" {
		u, err := url.Parse(c.Backend.URL)
		if err != nil {
			return fmt.Errorf("backend.url is not a valid URL: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("backend.url must use http or https, got %q", c.Backend.URL)
		}
	}

	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive, got %s", c.Backend.Timeout)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	if c.Logging.MaxSizeMB <= 0 {
		return fmt.Errorf("logging.max_size_mb must be positive, got %d", c.Logging.MaxSizeMB)
	}

	if c.Logging.MaxBackups < 0 {
		return fmt.Errorf("logging.max_backups must not be negative, got %d", c.Logging.MaxBackups)
	}

	return nil
}

// BackendEnabled reports whether submitted messages are sent for a reply
func (c *Config) BackendEnabled() bool {
	return c.Backend.URL != ""
}
