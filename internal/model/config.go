package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// APIConfig holds connection settings for the signal backend.
type APIConfig struct {
	// BaseURL is the root URL of the signal backend.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// ConsumerEmail identifies the logged-in consumer. Responses are
	// submitted under this address.
	ConsumerEmail string `mapstructure:"consumer_email" yaml:"consumer_email"`

	// PollIntervalSec is how often (in seconds) to refresh the
	// outstanding signal set from the backend.
	PollIntervalSec int `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// AlertConfig holds tunables for the deadline alert engine.
type AlertConfig struct {
	// NotificationsEnabled toggles OS notification emission. Reminder
	// dedup state advances either way.
	NotificationsEnabled bool `mapstructure:"notifications_enabled" yaml:"notifications_enabled"`

	// DraftAutosaveSec is the draft persistence cadence.
	DraftAutosaveSec int `mapstructure:"draft_autosave_sec" yaml:"draft_autosave_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API      APIConfig   `mapstructure:"api" yaml:"api"`
	Alert    AlertConfig `mapstructure:"alert" yaml:"alert"`
	DBPath   string      `mapstructure:"db_path" yaml:"db_path"`
	LogLevel string      `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/signaldesk/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "signaldesk", "config.yaml")
}

// DefaultDBPath returns the default SQLite database location, next to
// the config file.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "signaldesk.db")
	}
	return filepath.Join(home, ".config", "signaldesk", "signaldesk.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			PollIntervalSec: 60,
		},
		Alert: AlertConfig{
			NotificationsEnabled: true,
			DraftAutosaveSec:     30,
		},
		DBPath:   DefaultDBPath(),
		LogLevel: "info",
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("api.poll_interval_sec", 60)
	v.SetDefault("alert.notifications_enabled", true)
	v.SetDefault("alert.draft_autosave_sec", 30)
	v.SetDefault("db_path", DefaultDBPath())
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.API.PollIntervalSec <= 0 {
		cfg.API.PollIntervalSec = 60
	}
	if cfg.Alert.DraftAutosaveSec <= 0 {
		cfg.Alert.DraftAutosaveSec = 30
	}

	return cfg, nil
}

// SaveConfig writes the configuration back to the given YAML file path,
// creating parent directories as needed.
func SaveConfig(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.Set("api", cfg.API)
	v.Set("alert", cfg.Alert)
	v.Set("db_path", cfg.DBPath)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
