// Package config loads the typed view of config.toml. Every key has a
// default, so a missing file yields a usable configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

const (
	configDirEnv  = "LIMITWATCH_CONFIG_DIR"
	configDirName = ".limitwatch"
	configName    = "config"
	configType    = "toml"
)

type Config struct {
	Accounts AccountsConfig `mapstructure:"accounts"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
	History  HistoryConfig  `mapstructure:"history"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	UI       UIConfig       `mapstructure:"ui"`
	Serve    ServeConfig    `mapstructure:"serve"`
}

type AccountsConfig struct {
	Path string `mapstructure:"path"`
}

type SecretsConfig struct {
	// Backend selects the secret store: auto, file, or pass.
	Backend string `mapstructure:"backend"`
}

type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type FetchConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	Concurrency int           `mapstructure:"concurrency"`
}

type UIConfig struct {
	// AlertThreshold is the used percentage above which a quota renders red.
	AlertThreshold float64 `mapstructure:"alert_threshold"`
}

type ServeConfig struct {
	Port     int           `mapstructure:"port"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Dir resolves the limitwatch configuration directory, honoring the
// LIMITWATCH_CONFIG_DIR override.
func Dir() (string, error) {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return filepath.Clean(dir), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	return filepath.Join(homeDir, configDirName), nil
}

// SecretsDir is where the file secret backend keeps its entries.
func SecretsDir(configDir string) string {
	return filepath.Join(configDir, "secrets")
}

func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)
	setDefaults(v, dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("accounts.path", filepath.Join(dir, "accounts.toml"))
	v.SetDefault("secrets.backend", "auto")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", filepath.Join(dir, "history.db"))
	v.SetDefault("fetch.timeout", "60s")
	v.SetDefault("fetch.concurrency", 16)
	v.SetDefault("ui.alert_threshold", 80)
	v.SetDefault("serve.port", 3456)
	v.SetDefault("serve.cache_ttl", "60s")
}

func (c *Config) validate() error {
	if c.Accounts.Path == "" {
		return errors.New("accounts path is empty")
	}
	if c.History.Enabled && c.History.Path == "" {
		return errors.New("history path is empty")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive, got %s", c.Fetch.Timeout)
	}
	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch concurrency must be at least 1, got %d", c.Fetch.Concurrency)
	}
	if c.UI.AlertThreshold <= 0 || c.UI.AlertThreshold > 100 {
		return fmt.Errorf("ui alert threshold must be between 1 and 100, got %g", c.UI.AlertThreshold)
	}
	if c.Serve.Port < 1 || c.Serve.Port > 65535 {
		return fmt.Errorf("serve port must be between 1 and 65535, got %d", c.Serve.Port)
	}
	if c.Serve.CacheTTL < 0 {
		return fmt.Errorf("serve cache ttl cannot be negative, got %s", c.Serve.CacheTTL)
	}

	return nil
}
