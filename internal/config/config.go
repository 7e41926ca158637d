// Package config provides configuration management for the application.
// Configuration is loaded from a YAML file with environment variable
// overrides via viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"ideaminer/internal/domain"
	"ideaminer/internal/logger"
)

// Defaults applied when the config file or environment leaves values unset.
const (
	defaultMaxWorkers       = 3
	defaultRateLimitMs      = 1000
	defaultMaxPages         = 100
	defaultAIConcurrency    = 8
	defaultAIModel          = "gemini-2.0-flash-exp"
	defaultAITemperature    = 0.7
	defaultAIMaxTokens      = 1000
	defaultAITimeout        = 60 * time.Second
	defaultThreshold        = 0.85
	defaultRetentionDays    = 30
	defaultRecentWindowDays = 30
	defaultBatchSize        = 50
	defaultMaxRetryAttempts = 3
	defaultGuardWindow      = time.Hour
	defaultServerAddress    = ":8080"
)

// Config represents the application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logger    logger.Config   `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Scraping  ScrapingConfig  `mapstructure:"scraping"`
	AI        AIConfig        `mapstructure:"ai"`
	Staging   StagingConfig   `mapstructure:"staging"`
	Migration MigrationConfig `mapstructure:"migration"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ServerConfig holds the admin API server settings.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// ScrapingConfig holds fetch orchestration settings and the source list.
type ScrapingConfig struct {
	Enabled     bool            `mapstructure:"enabled"`
	MaxWorkers  int             `mapstructure:"max_workers"`
	RateLimitMs int             `mapstructure:"rate_limit_ms"`
	MaxPages    int             `mapstructure:"max_pages"`
	Sources     []domain.Source `mapstructure:"sources"`
}

// AIConfig holds generative rewrite service settings.
type AIConfig struct {
	Provider    string        `mapstructure:"provider"`
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// StagingConfig holds staging store settings.
type StagingConfig struct {
	DuplicateThreshold float64 `mapstructure:"duplicate_threshold"`
	RetentionDays      int     `mapstructure:"retention_days"`
	RecentWindowDays   int     `mapstructure:"recent_window_days"`
}

// MigrationConfig holds migration engine settings.
type MigrationConfig struct {
	BatchSize      int  `mapstructure:"batch_size"`
	EnableRollback bool `mapstructure:"enable_rollback"`
}

// ScheduleConfig holds scheduler settings.
type ScheduleConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRetryAttempts int           `mapstructure:"max_retry_attempts"`
	GuardWindow      time.Duration `mapstructure:"guard_window"`
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Validate checks the configuration for fatal misconfiguration. A failed
// validation aborts the run, never the calling process.
func (c *Config) Validate() error {
	if c.Scraping.MaxWorkers <= 0 {
		return errors.New("scraping.max_workers must be positive")
	}
	if c.AI.Concurrency <= 0 {
		return errors.New("ai.concurrency must be positive")
	}
	if c.Staging.DuplicateThreshold <= 0 || c.Staging.DuplicateThreshold > 1 {
		return fmt.Errorf("staging.duplicate_threshold out of range: %f", c.Staging.DuplicateThreshold)
	}
	if c.Migration.BatchSize <= 0 {
		return errors.New("migration.batch_size must be positive")
	}

	seen := make(map[string]struct{}, len(c.Scraping.Sources))
	for i := range c.Scraping.Sources {
		src := &c.Scraping.Sources[i]
		if src.Name == "" {
			return fmt.Errorf("scraping.sources[%d]: name must be set", i)
		}
		if _, ok := seen[src.Name]; ok {
			return fmt.Errorf("scraping.sources: duplicate source name %q", src.Name)
		}
		seen[src.Name] = struct{}{}
	}

	return nil
}

// Load reads configuration from the given file (optional) plus environment
// variables, applies defaults and validates the result.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("IDEAMINER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file is optional; defaults and env vars still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Scraping.applySourceDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applySourceDefaults fills per-source politeness settings from the global
// scraping options. A source only overrides what it sets itself.
func (c *ScrapingConfig) applySourceDefaults() {
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.RateLimitMs <= 0 {
			src.RateLimitMs = c.RateLimitMs
		}
		if src.MaxPages <= 0 {
			src.MaxPages = c.MaxPages
		}
	}
}

// setDefaults registers default values with viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "ideaminer")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "ideaminer")
	v.SetDefault("database.dbname", "ideaminer")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("server.address", defaultServerAddress)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("scraping.enabled", true)
	v.SetDefault("scraping.max_workers", defaultMaxWorkers)
	v.SetDefault("scraping.rate_limit_ms", defaultRateLimitMs)
	v.SetDefault("scraping.max_pages", defaultMaxPages)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", defaultAIModel)
	v.SetDefault("ai.temperature", defaultAITemperature)
	v.SetDefault("ai.max_tokens", defaultAIMaxTokens)
	v.SetDefault("ai.concurrency", defaultAIConcurrency)
	v.SetDefault("ai.timeout", defaultAITimeout)

	v.SetDefault("staging.duplicate_threshold", defaultThreshold)
	v.SetDefault("staging.retention_days", defaultRetentionDays)
	v.SetDefault("staging.recent_window_days", defaultRecentWindowDays)

	v.SetDefault("migration.batch_size", defaultBatchSize)
	v.SetDefault("migration.enable_rollback", true)

	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.max_retry_attempts", defaultMaxRetryAttempts)
	v.SetDefault("schedule.guard_window", defaultGuardWindow)
}
