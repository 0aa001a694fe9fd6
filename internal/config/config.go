// Package config provides configuration management for the tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Tracker       TrackerConfig      `mapstructure:"tracker"`
	Provider      ProviderConfig     `mapstructure:"provider"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	UI            UIConfig           `mapstructure:"ui"`
}

// TrackerConfig holds tracking-loop configuration.
type TrackerConfig struct {
	DatabasePath string        `mapstructure:"database_path"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// ProviderConfig holds market-data provider configuration.
type ProviderConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
}

// LoggingConfig holds log output configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Console    bool   `mapstructure:"console"`
	File       bool   `mapstructure:"file"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Email    EmailConfig    `mapstructure:"email"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// EmailConfig holds SMTP transport configuration. Every recognized field
// is enumerated here and validated at load time, not at send time.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

// TelegramConfig holds Telegram bot transport configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
}

// WebhookConfig holds webhook transport configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stock-tracker"
	}
	return filepath.Join(home, ".config", "stock-tracker")
}

// DefaultDatabasePath returns the default SQLite database path.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultConfigDir(), "tracker.db")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	// Booleans cannot distinguish "absent" from "false" after Unmarshal,
	// so their defaults live here rather than in applyDefaults.
	v.SetDefault("logging.console", true)
	v.SetDefault("logging.file", true)
	v.SetDefault("ui.color_enabled", true)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func applyDefaults(cfg *Config) {
	if cfg.Tracker.DatabasePath == "" {
		cfg.Tracker.DatabasePath = DefaultDatabasePath()
	}
	if cfg.Tracker.PollInterval == 0 {
		cfg.Tracker.PollInterval = 5 * time.Minute
	}
	if cfg.Provider.BaseURL == "" {
		cfg.Provider.BaseURL = "https://query1.finance.yahoo.com"
	}
	if cfg.Provider.RequestTimeout == 0 {
		cfg.Provider.RequestTimeout = 10 * time.Second
	}
	if cfg.Provider.MaxRetries == 0 {
		cfg.Provider.MaxRetries = 3
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.FilePath == "" {
		cfg.Logging.FilePath = filepath.Join(DefaultConfigDir(), "logs", "tracker.log")
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 100
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 7
	}
	if cfg.Logging.MaxAgeDays == 0 {
		cfg.Logging.MaxAgeDays = 30
	}
	if cfg.UI.DateFormat == "" {
		cfg.UI.DateFormat = "2006-01-02"
	}
	if cfg.UI.TimeFormat == "" {
		cfg.UI.TimeFormat = "15:04:05"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRACKER_SMTP_PASSWORD"); v != "" {
		cfg.Notifications.Email.Password = v
	}
	if v := os.Getenv("TRACKER_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TRACKER_DATABASE_PATH"); v != "" {
		cfg.Tracker.DatabasePath = v
	}
}

// Validate validates the configuration. Transport settings are checked
// here so a misconfigured transport fails at startup rather than at the
// moment an alert fires.
func (c *Config) Validate() error {
	if c.Tracker.PollInterval < time.Second {
		return fmt.Errorf("poll_interval must be at least 1s, got %s", c.Tracker.PollInterval)
	}
	if c.Provider.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive")
	}
	if c.Provider.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}

	if c.Notifications.Email.Enabled {
		e := c.Notifications.Email
		if e.SMTPHost == "" {
			return fmt.Errorf("email enabled but smtp_host is empty")
		}
		if e.SMTPPort <= 0 || e.SMTPPort > 65535 {
			return fmt.Errorf("invalid smtp_port: %d", e.SMTPPort)
		}
		if e.From == "" {
			return fmt.Errorf("email enabled but from address is empty")
		}
	}

	if c.Notifications.Telegram.Enabled && c.Notifications.Telegram.BotToken == "" {
		return fmt.Errorf("telegram enabled but bot_token is empty")
	}

	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return fmt.Errorf("webhook enabled but url is empty")
	}

	return nil
}
