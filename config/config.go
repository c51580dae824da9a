// Package config loads the application configuration: user settings for a
// run plus the infrastructure knobs (artifact database, browser, optional
// Elasticsearch sink). Values come from a YAML file with CHATEXPORT_*
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/pevans/chatexport"
)

// Browser configures the live page session.
type Browser struct {
	URL      string `mapstructure:"url"`
	Headless bool   `mapstructure:"headless"`
}

// Elastic configures the optional message sink. An empty URL disables it.
type Elastic struct {
	URL        string `mapstructure:"url"`
	Username   string `mapstructure:"username"`
	Password   string `mapstructure:"password"`
	Index      string `mapstructure:"index"`
	SkipVerify bool   `mapstructure:"skip_verify"`
}

// Config is the full application configuration.
type Config struct {
	Settings      chatexport.Settings `mapstructure:"settings"`
	Browser       Browser             `mapstructure:"browser"`
	Elastic       Elastic             `mapstructure:"elastic"`
	DBPath        string              `mapstructure:"db_path"`
	PlatformsFile string              `mapstructure:"platforms_file"`
}

// Load reads configuration from the given YAML file (missing file falls
// back to defaults) and applies CHATEXPORT_* environment overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("db_path", "chatexport.db")
	v.SetDefault("settings.messages_per_chat", chatexport.DefaultMessagesPerChat)
	v.SetDefault("settings.row_mode", string(chatexport.RowPerMessage))
	v.SetDefault("browser.headless", true)
	v.SetDefault("elastic.index", "chatexport-messages")

	v.SetEnvPrefix("CHATEXPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Settings = cfg.Settings.Normalize()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Settings.MessagesPerChat <= 0 {
		return fmt.Errorf("settings.messages_per_chat must be positive")
	}
	switch cfg.Settings.RowMode {
	case chatexport.RowPerMessage, chatexport.RowPerChat:
	default:
		return fmt.Errorf("settings.row_mode must be %q or %q",
			chatexport.RowPerMessage, chatexport.RowPerChat)
	}
	if cfg.Elastic.URL != "" && cfg.Elastic.Index == "" {
		return fmt.Errorf("elastic.index is required when elastic.url is set")
	}
	return nil
}
