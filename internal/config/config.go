// ABOUTME: Configuration management for connect with YAML config and .env loading.
// ABOUTME: Resolves the API base URL, cache backend settings, log level, and ~ expansion.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAPIBaseURL is the production SocialConnect API.
const DefaultAPIBaseURL = "https://socialconnect.pythonanywhere.com/api"

// EnvAPIBaseURL overrides the API base URL.
const EnvAPIBaseURL = "CONNECT_API_BASE_URL"

// Cache backends.
const (
	CacheFile   = "file"
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// Config stores connect configuration loaded from ~/.config/connect/config.yaml.
type Config struct {
	API   APIConfig   `yaml:"api"`
	Cache CacheConfig `yaml:"cache"`
	Log   LogConfig   `yaml:"log"`
}

// APIConfig holds remote API settings.
type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// CacheConfig selects and configures the persistent cache backend.
type CacheConfig struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// GetAPIBaseURL resolves the API base URL: environment, then config file, then default.
// Trailing slashes are trimmed.
func (c *Config) GetAPIBaseURL() string {
	url := os.Getenv(EnvAPIBaseURL)
	if url == "" {
		url = c.API.BaseURL
	}
	if url == "" {
		url = DefaultAPIBaseURL
	}
	return strings.TrimRight(url, "/")
}

// GetTimeout returns the HTTP timeout, defaulting to 30 seconds.
func (c *Config) GetTimeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// GetCacheBackend returns the configured backend, defaulting to file.
func (c *Config) GetCacheBackend() string {
	switch c.Cache.Backend {
	case CacheRedis, CacheMemory:
		return c.Cache.Backend
	default:
		return CacheFile
	}
}

// GetCacheDir returns the file cache directory, defaulting to $XDG_DATA_HOME/connect/cache.
func (c *Config) GetCacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return ExpandPath(c.Cache.Dir)
	}
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "connect", "cache"), nil
}

// GetRedisAddr returns the redis address, defaulting to localhost:6379.
func (c *Config) GetRedisAddr() string {
	if addr := os.Getenv("CONNECT_REDIS_ADDR"); addr != "" {
		return addr
	}
	if c.Cache.RedisAddr != "" {
		return c.Cache.RedisAddr
	}
	return "localhost:6379"
}

// GetLogLevel returns the log level, with CONNECT_LOG_LEVEL taking precedence.
func (c *Config) GetLogLevel() string {
	if lvl := os.Getenv("CONNECT_LOG_LEVEL"); lvl != "" {
		return lvl
	}
	return c.Log.Level
}

// GetConfigPath returns the config file path.
func GetConfigPath() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "connect", "config.yaml"), nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// LoadDotEnvs loads .env files from dir following the dotenv convention.
// Already-set variables are never overwritten, so earlier files win.
func LoadDotEnvs(dir string) {
	env := os.Getenv("CONNECT_ENV")
	if env == "" {
		env = "dev"
	}

	// .env.[env].local has highest priority, usually contains credentials
	_ = godotenv.Load(filepath.Join(dir, ".env."+env+".local"))
	_ = godotenv.Load(filepath.Join(dir, ".env.local"))
	_ = godotenv.Load(filepath.Join(dir, ".env."+env))
	_ = godotenv.Load(filepath.Join(dir, ".env"))
}

// Load reads config from disk. Returns default config if file doesn't exist.
func Load() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
