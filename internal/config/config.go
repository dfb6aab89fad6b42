// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

const defaultJWTSecret = "vitrine-development-secret-change-me"

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`
	AdminEmail  string   `mapstructure:"adminemail"`

	// Auth
	JWTSecret          string `mapstructure:"jwtsecret"`
	JWTTTLHours        int    `mapstructure:"jwtttlhours"`
	LoginRatePerMinute int    `mapstructure:"loginratelimit"`

	// File paths
	DatabasePath          string `mapstructure:"storagepath"`
	DatabaseName          string `mapstructure:"-"` // Derived from other settings
	GeoDBPath             string `mapstructure:"geodbpath"`
	GeoLiteLicenseKey     string `mapstructure:"geolitelicensekey"`
	PublicDirectory       string `mapstructure:"publicdir"`
	PublicAssetsUrlPrefix string `mapstructure:"publicassetsurlprefix"`

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Database settings
	DatabaseMaxOpenConns int `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int `mapstructure:"dbmaxidleconns"`

	// Visit tracking
	TrackingEnabled bool `mapstructure:"trackingenabled"`

	// Job scheduling settings
	JobIntervalSeconds        int `mapstructure:"jobintervalseconds"`
	ProjectViewsRetentionDays int `mapstructure:"projectviewsretentiondays"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		// A missing .env is fine; real deployments use the environment directly.
		_ = godotenv.Load()

		v := viper.New()

		v.SetDefault("appname", "vitrine")
		v.SetDefault("appport", "3001")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("jwtsecret", defaultJWTSecret)
		v.SetDefault("jwtttlhours", 24*7)
		v.SetDefault("loginratelimit", 10)
		v.SetDefault("storagepath", "storage")
		v.SetDefault("geodbpath", "storage/GeoLite2-Country.mmdb")
		v.SetDefault("publicdir", "web/dist")
		v.SetDefault("publicassetsurlprefix", "/")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("trackingenabled", true)
		v.SetDefault("jobintervalseconds", 3600)
		v.SetDefault("projectviewsretentiondays", 365)

		v.BindEnv("appname", "VITRINE_APP_NAME")
		v.BindEnv("appport", "VITRINE_APP_PORT", "PORT")
		v.BindEnv("environment", "VITRINE_ENV")
		v.BindEnv("loglevel", "VITRINE_LOG_LEVEL")
		v.BindEnv("adminemail", "VITRINE_ADMIN_EMAIL")
		v.BindEnv("jwtsecret", "VITRINE_JWT_SECRET", "JWT_SECRET")
		v.BindEnv("jwtttlhours", "VITRINE_JWT_TTL_HOURS")
		v.BindEnv("loginratelimit", "VITRINE_LOGIN_RATE_LIMIT")
		v.BindEnv("storagepath", "VITRINE_STORAGE_PATH")
		v.BindEnv("geodbpath", "VITRINE_GEO_DB_PATH")
		v.BindEnv("geolitelicensekey", "VITRINE_GEOLITE_LICENSE_KEY")
		v.BindEnv("publicdir", "VITRINE_PUBLIC_DIR")
		v.BindEnv("publicassetsurlprefix", "VITRINE_PUBLIC_ASSETS_URL_PREFIX")
		v.BindEnv("logsdir", "VITRINE_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "VITRINE_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "VITRINE_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "VITRINE_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("dbmaxopenconns", "VITRINE_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "VITRINE_DB_MAX_IDLE_CONNS")
		v.BindEnv("trackingenabled", "VITRINE_TRACKING_ENABLED")
		v.BindEnv("jobintervalseconds", "VITRINE_JOB_INTERVAL_SECONDS")
		v.BindEnv("projectviewsretentiondays", "VITRINE_PROJECT_VIEWS_RETENTION_DAYS")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		return fmt.Errorf("production requires a unique VITRINE_JWT_SECRET (cannot use default)")
	}

	if c.JWTTTLHours <= 0 {
		return fmt.Errorf("invalid jwt ttl: %d hours", c.JWTTTLHours)
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetPort returns the HTTP server port (implements cartridge.Config interface).
func (c *Config) GetPort() string {
	return c.AppPort
}

// GetPublicDirectory returns the path to public/static assets (implements cartridge.Config interface).
func (c *Config) GetPublicDirectory() string {
	return c.PublicDirectory
}

// GetAssetsPrefix returns the URL prefix for static assets (implements cartridge.Config interface).
func (c *Config) GetAssetsPrefix() string {
	return c.PublicAssetsUrlPrefix
}

// GetAppName returns the application name (implements cartridge.FactoryConfig interface).
func (c *Config) GetAppName() string {
	return c.AppName
}

// DatabaseDSN returns the database connection string (implements cartridge.FactoryConfig interface).
func (c *Config) DatabaseDSN() string {
	return c.GetDatabasePath()
}

// GetSessionSecret returns the signing key (implements cartridge.FactoryConfig interface).
// Tokens are stateless, so the session secret and the JWT secret are the same value.
func (c *Config) GetSessionSecret() string {
	return c.JWTSecret
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1
// - Development/Production: 10 (the dashboard issues its counts in parallel)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// GetLogLevel returns the log level as a string (implements cartridge.LogConfigProvider).
func (c *Config) GetLogLevel() string {
	return string(c.LogLevel)
}

// GetLogDirectory returns the logs directory (implements cartridge.LogConfigProvider).
func (c *Config) GetLogDirectory() string {
	return c.LogsDirectory
}

// GetLogMaxSizeMB returns the max log file size in MB (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxSizeMB() int {
	return c.LogsMaxSizeInMb
}

// GetLogMaxBackups returns the max number of log backups (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxBackups() int {
	return c.LogsMaxBackups
}

// GetLogMaxAgeDays returns the max age in days for log files (implements cartridge.LogConfigProvider).
func (c *Config) GetLogMaxAgeDays() int {
	return c.LogsMaxAgeInDays
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
