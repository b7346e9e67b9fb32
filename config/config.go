package config

import (
	"errors"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// StartupMode defines how the service handles initialization failures
type StartupMode string

const (
	// StartupModeStrict fails fast on any initialization error (default)
	StartupModeStrict StartupMode = "strict"
	// StartupModeGraceful starts with degraded functionality, logging warnings
	StartupModeGraceful StartupMode = "graceful"
)

// EnvPrefix prefixes every environment variable read by LoadConfig
const EnvPrefix = "ALERTFILTER"

// DataPaths holds all data directory and file path configuration
type DataPaths struct {
	// DataDir is the base data directory (ALERTFILTER_DATA_DIR, default: ./data)
	DataDir string `mapstructure:"data_dir"`
	// SQLitePath is the SQLite database file path (ALERTFILTER_SQLITE_PATH, default: ${DataDir}/alertfilter.db)
	SQLitePath string `mapstructure:"sqlite_path"`
}

// Config holds all configuration for the alert filter service
type Config struct {
	// StartupMode controls how initialization failures are handled
	StartupMode StartupMode `mapstructure:"startup_mode" validate:"omitempty,oneof=strict graceful"`

	DataPaths DataPaths `mapstructure:"data_paths"`

	API struct {
		Host           string        `mapstructure:"host" validate:"required"`
		Port           int           `mapstructure:"port" validate:"min=1,max=65535"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
		MaxRequestBody int64         `mapstructure:"max_request_body" validate:"min=1024"`
		RateLimit      struct {
			RequestsPerSecond int `mapstructure:"requests_per_second" validate:"min=1"`
			Burst             int `mapstructure:"burst" validate:"min=1"`
		} `mapstructure:"rate_limit"`
	} `mapstructure:"api"`

	Auth struct {
		Enabled   bool          `mapstructure:"enabled"`
		JWTSecret string        `mapstructure:"jwt_secret"`
		JWTExpiry time.Duration `mapstructure:"jwt_expiry"`
	} `mapstructure:"auth"`

	// Engine bounds the cost of parsing and evaluating user rules
	Engine struct {
		MaxDepth  int           `mapstructure:"max_depth" validate:"min=1,max=1024"`
		MaxNodes  int           `mapstructure:"max_nodes" validate:"min=1,max=1000000"`
		CacheSize int           `mapstructure:"cache_size" validate:"min=1,max=1000000"`
		CacheTTL  time.Duration `mapstructure:"cache_ttl"`
	} `mapstructure:"engine"`

	Redis struct {
		Enabled  bool          `mapstructure:"enabled"`
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db" validate:"min=0,max=15"`
		PoolSize int           `mapstructure:"pool_size" validate:"min=1"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`

	Metrics struct {
		CollectionInterval time.Duration `mapstructure:"collection_interval"`
	} `mapstructure:"metrics"`

	configFile string
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("startup_mode", string(StartupModeStrict))

	v.SetDefault("data_paths.data_dir", "./data")
	v.SetDefault("data_paths.sqlite_path", "") // Empty = derive from data_dir

	v.SetDefault("api.host", "127.0.0.1")
	v.SetDefault("api.port", 8081)
	v.SetDefault("api.read_timeout", 15*time.Second)
	v.SetDefault("api.write_timeout", 15*time.Second)
	v.SetDefault("api.max_request_body", 1<<20) // 1MB
	v.SetDefault("api.rate_limit.requests_per_second", 100)
	v.SetDefault("api.rate_limit.burst", 100)

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_expiry", 24*time.Hour)

	v.SetDefault("engine.max_depth", 32)
	v.SetDefault("engine.max_nodes", 1024)
	v.SetDefault("engine.cache_size", 1000)
	v.SetDefault("engine.cache_ttl", 30*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("metrics.collection_interval", 15*time.Second)
}

// loadFromEnv sets up environment variable loading
func loadFromEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Shorter names for the settings operators change most
	_ = v.BindEnv("startup_mode", EnvPrefix+"_STARTUP_MODE")
	_ = v.BindEnv("data_paths.data_dir", EnvPrefix+"_DATA_DIR")
	_ = v.BindEnv("data_paths.sqlite_path", EnvPrefix+"_SQLITE_PATH")
	_ = v.BindEnv("auth.jwt_secret", EnvPrefix+"_JWT_SECRET")
}

// LoadConfig loads configuration from config.yaml in the working directory
// or ./config, then from environment variables.
func LoadConfig() (*Config, error) {
	return LoadConfigFile("")
}

// LoadConfigFile is like LoadConfig but reads the given file when path is
// not empty. A missing explicit file is an error; a missing default file is not.
func LoadConfigFile(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)
	loadFromEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.configFile = v.ConfigFileUsed()

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	config.ResolveDataPaths()

	return &config, nil
}

// ResolveDataPaths derives unset paths from DataDir
func (c *Config) ResolveDataPaths() {
	dataDir := c.DataPaths.DataDir
	if dataDir == "" {
		dataDir = "./data"
	}

	if c.DataPaths.SQLitePath == "" {
		c.DataPaths.SQLitePath = filepath.Join(dataDir, "alertfilter.db")
	} else if !filepath.IsAbs(c.DataPaths.SQLitePath) {
		c.DataPaths.SQLitePath = filepath.Clean(c.DataPaths.SQLitePath)
	}

	c.DataPaths.DataDir = dataDir
}

// GetDataDir returns the resolved base data directory
func (c *Config) GetDataDir() string {
	if c.DataPaths.DataDir == "" {
		return "./data"
	}
	return c.DataPaths.DataDir
}

// GetSQLitePath returns the resolved SQLite database path
func (c *Config) GetSQLitePath() string {
	if c.DataPaths.SQLitePath == "" {
		return filepath.Join(c.GetDataDir(), "alertfilter.db")
	}
	return c.DataPaths.SQLitePath
}

// IsGracefulMode returns true if startup mode is graceful
func (c *Config) IsGracefulMode() bool {
	return c.StartupMode == StartupModeGraceful
}

// ConfigFileUsed returns the config file that was read, if any
func (c *Config) ConfigFileUsed() string {
	return c.configFile
}

// ListenAddr returns the host:port the API listens on
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.API.Host, fmt.Sprint(c.API.Port))
}

var weakSecrets = []string{
	"secret", "password", "changeme", "default", "admin",
	"jwt_secret", "supersecret", "mysecret", "test", "example",
}

func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return err
	}

	if config.Auth.Enabled {
		if len(config.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret must be at least 32 characters (256 bits) when auth is enabled")
		}
		lowerSecret := strings.ToLower(config.Auth.JWTSecret)
		for _, weak := range weakSecrets {
			if strings.Contains(lowerSecret, weak) {
				return fmt.Errorf("auth.jwt_secret appears to contain weak/default value: please use a cryptographically secure random string")
			}
		}
		if config.Auth.JWTExpiry <= 0 {
			return fmt.Errorf("auth.jwt_expiry must be positive")
		}
	}

	if config.Redis.Enabled {
		if _, _, err := net.SplitHostPort(config.Redis.Addr); err != nil {
			return fmt.Errorf("invalid redis.addr %q: %w", config.Redis.Addr, err)
		}
		if config.Redis.TTL <= 0 {
			return fmt.Errorf("redis.ttl must be positive when redis is enabled")
		}
	}

	if config.Engine.CacheTTL < 0 {
		return fmt.Errorf("engine.cache_ttl cannot be negative")
	}

	if config.API.ReadTimeout <= 0 || config.API.WriteTimeout <= 0 {
		return fmt.Errorf("api.read_timeout and api.write_timeout must be positive")
	}

	return nil
}
