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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHATDB_DATA_DIR", dir)

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model)
	assert.Equal(t, 3, cfg.Chat.MaxRetries)
	assert.True(t, cfg.Chat.Stream)
	assert.Equal(t, filepath.Join(dir, "conversations.db"), cfg.Store.URI)
	assert.Equal(t, filepath.Join(dir, "settings.yaml"), cfg.Settings.Path)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CHATDB_DATA_DIR", dir)
	path := filepath.Join(dir, "chatdb.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  model: claude-sonnet-4-5
  max_tokens: 1024
store:
  uri: redis://localhost:6379/2
chat:
  max_retries: 5
`), 0o600))
	t.Setenv("CHATDB_CHAT_MAX_RETRIES", "1")

	cfg, err := LoadConfig(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5", cfg.LLM.Model)
	assert.Equal(t, 1024, cfg.LLM.MaxTokens)
	assert.Equal(t, "redis://localhost:6379/2", cfg.Store.URI, "URIs are not expanded as paths")
	assert.Equal(t, 1, cfg.Chat.MaxRetries, "environment wins over the file")
}

func TestLoadConfig_FlagsWin(t *testing.T) {
	t.Setenv("CHATDB_DATA_DIR", t.TempDir())
	t.Setenv("CHATDB_LLM_MODEL", "from-env")

	root, c := newRootCmd()
	require.NoError(t, root.PersistentFlags().Parse([]string{"--model", "from-flag", "--store", "memory"}))
	cfg, err := LoadConfig(c.viper, "")
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.LLM.Model)
	assert.Equal(t, "memory", cfg.Store.URI)
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o600))
	_, err := LoadConfig(viper.New(), path)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:      LLMConfig{Model: "gpt-4.1", MaxTokens: 100, Temperature: 0.5},
			Store:    StoreConfig{URI: "memory"},
			Settings: SettingsConfig{Path: "/tmp/settings.yaml"},
			Chat:     ChatConfig{MaxRetries: 3},
			Logging:  LoggingConfig{Format: "json"},
		}
	}
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "provider", mutate: func(c *Config) { c.LLM.Provider = "ollama" }, wantErr: "unsupported provider"},
		{name: "model", mutate: func(c *Config) { c.LLM.Model = "" }, wantErr: "llm.model"},
		{name: "temperature", mutate: func(c *Config) { c.LLM.Temperature = 3 }, wantErr: "llm.temperature"},
		{name: "max tokens", mutate: func(c *Config) { c.LLM.MaxTokens = 0 }, wantErr: "llm.max_tokens"},
		{name: "retries", mutate: func(c *Config) { c.Chat.MaxRetries = -1 }, wantErr: "chat.max_retries"},
		{name: "store", mutate: func(c *Config) { c.Store.URI = "" }, wantErr: "store.uri"},
		{name: "log format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "", maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "sk-a...wxyz", maskSecret("sk-abcdefghijklmnopqrstuvwxyz"))
}

func TestRedactURI(t *testing.T) {
	assert.Equal(t, "postgresql://app:xxxxx@db/sales", redactURI("postgresql://app:secret@db/sales"))
	assert.Equal(t, "sqlite:///data/x.db", redactURI("sqlite:///data/x.db"))
}

func TestGenerateExampleConfig(t *testing.T) {
	var parsed map[string]interface{}
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(GenerateExampleConfig())))
	require.NoError(t, v.Unmarshal(&parsed))
	assert.Contains(t, parsed, "llm")
	assert.Equal(t, "gpt-4.1", v.GetString("llm.model"))
}
