// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"

	chatdbconfig "github.com/teradata-labs/chatdb/pkg/config"
	"github.com/teradata-labs/chatdb/pkg/llm/factory"
)

const (
	// ServiceName for keyring storage
	ServiceName = "chatdb"
	// DefaultConfigFileName is the name of the config file without extension
	DefaultConfigFileName = "chatdb"
	// EnvPrefix prefixes environment overrides, e.g. CHATDB_LLM_MODEL.
	EnvPrefix = "CHATDB"
)

// Config holds the configuration of the chatdb binary.
// Priority: CLI flags > env vars > config file > defaults
type Config struct {
	// DataDir is computed from CHATDB_DATA_DIR or ~/.chatdb and is not read
	// from the config file.
	DataDir string `mapstructure:"-"`

	LLM      LLMConfig      `mapstructure:"llm"`
	Store    StoreConfig    `mapstructure:"store"`
	Settings SettingsConfig `mapstructure:"settings"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// LLMConfig selects and configures the LLM provider.
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`

	OpenAIAPIKey   string `mapstructure:"openai_api_key"` // From CLI/env/keyring/settings only
	OpenAIEndpoint string `mapstructure:"openai_endpoint"`

	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"` // From CLI/env/keyring/settings only
	AnthropicBaseURL string `mapstructure:"anthropic_base_url"`

	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// StoreConfig locates the conversation store.
type StoreConfig struct {
	// URI is a SQLite path, sqlite://, memory or redis:// location.
	URI string `mapstructure:"uri"`
}

// SettingsConfig locates the settings file.
type SettingsConfig struct {
	Path string `mapstructure:"path"`
}

// ChatConfig configures conversation turns.
type ChatConfig struct {
	MaxRetries int  `mapstructure:"max_retries"`
	Stream     bool `mapstructure:"stream"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig loads configuration from file, environment and flags already
// bound to v. An empty cfgFile searches the data directory, the working
// directory and /etc/chatdb for chatdb.yaml.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(chatdbconfig.GetDataDir())
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/chatdb/")
		v.SetConfigName(DefaultConfigFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.DataDir = chatdbconfig.GetDataDir()
	if config.Store.URI != "" && config.Store.URI != "memory" && !strings.Contains(config.Store.URI, "://") {
		config.Store.URI = chatdbconfig.ExpandPath(config.Store.URI)
	}
	if config.Settings.Path != "" {
		config.Settings.Path = chatdbconfig.ExpandPath(config.Settings.Path)
	}

	// Non-fatal: the keyring might not be available.
	_ = loadSecretsFromKeyring(&config)

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "")
	v.SetDefault("llm.model", factory.DefaultModel)
	// Empty defaults make the keys visible to AutomaticEnv.
	v.SetDefault("llm.openai_api_key", "")
	v.SetDefault("llm.openai_endpoint", "")
	v.SetDefault("llm.anthropic_api_key", "")
	v.SetDefault("llm.anthropic_base_url", "")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout_seconds", 120)

	v.SetDefault("store.uri", chatdbconfig.StorePath())
	v.SetDefault("settings.path", chatdbconfig.SettingsPath())

	v.SetDefault("chat.max_retries", 3)
	v.SetDefault("chat.stream", true)

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "", factory.ProviderOpenAI, factory.ProviderAnthropic:
	default:
		errs = append(errs, fmt.Errorf("llm.provider: unsupported provider %q (supported: %s, %s)",
			c.LLM.Provider, factory.ProviderOpenAI, factory.ProviderAnthropic))
	}
	if c.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model must not be empty"))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2, got %g", c.LLM.Temperature))
	}
	if c.LLM.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("llm.max_tokens must be positive, got %d", c.LLM.MaxTokens))
	}
	if c.Chat.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("chat.max_retries must not be negative, got %d", c.Chat.MaxRetries))
	}
	if c.Store.URI == "" {
		errs = append(errs, errors.New("store.uri must not be empty"))
	}
	if c.Settings.Path == "" {
		errs = append(errs, errors.New("settings.path must not be empty"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// SecretMapping describes how a keyring entry fills a config field.
type SecretMapping struct {
	KeyringKey string
	Setter     func(*Config, string)
	IsSet      func(*Config) bool
}

// GetSecretMappings returns every secret the keyring can provide.
func GetSecretMappings() []SecretMapping {
	return []SecretMapping{
		{
			KeyringKey: "openai_api_key",
			Setter:     func(c *Config, val string) { c.LLM.OpenAIAPIKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.OpenAIAPIKey != "" },
		},
		{
			KeyringKey: "anthropic_api_key",
			Setter:     func(c *Config, val string) { c.LLM.AnthropicAPIKey = val },
			IsSet:      func(c *Config) bool { return c.LLM.AnthropicAPIKey != "" },
		},
	}
}

// ListAvailableSecretKeys returns the keyring key names.
func ListAvailableSecretKeys() []string {
	mappings := GetSecretMappings()
	keys := make([]string, 0, len(mappings))
	for _, m := range mappings {
		keys = append(keys, m.KeyringKey)
	}
	return keys
}

func loadSecretsFromKeyring(config *Config) error {
	for _, mapping := range GetSecretMappings() {
		if mapping.IsSet(config) {
			continue
		}
		value, err := keyring.Get(ServiceName, mapping.KeyringKey)
		if err == nil && value != "" {
			mapping.Setter(config, value)
		}
	}
	return nil
}
