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
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"

	"github.com/teradata-labs/chatdb/internal/version"
	chatdbconfig "github.com/teradata-labs/chatdb/pkg/config"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage chatdb configuration and secrets",
	}
	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(c),
		newConfigSetKeyCmd(c),
		newConfigGetKeyCmd(),
		newConfigDeleteKeyCmd(),
		newConfigListKeysCmd(),
	)
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an example chatdb.yaml to the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := chatdbconfig.EnsureDataDir()
			if err != nil {
				return err
			}
			path := filepath.Join(dir, chatdbconfig.ConfigFileName)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(GenerateExampleConfig()), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newConfigShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			shown := *c.config
			shown.LLM.OpenAIAPIKey = maskSecret(shown.LLM.OpenAIAPIKey)
			shown.LLM.AnthropicAPIKey = maskSecret(shown.LLM.AnthropicAPIKey)
			out, err := yaml.Marshal(configView(shown))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# chatdb %s, data dir %s\n%s", version.String(), shown.DataDir, out)
			return nil
		},
	}
}

func newConfigSetKeyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "set-key <key-name>",
		Short: "Save an API key to the system keyring",
		Long: heredoc.Doc(`
			Save an API key to the system keyring (Keychain on macOS, Credential
			Manager on Windows, Secret Service on Linux). The key is read without
			echo. Run 'chatdb config list-keys' for the key names.
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkKeyName(args[0]); err != nil {
				return err
			}
			secret, err := c.readSecret(cmd.ErrOrStderr(), fmt.Sprintf("Enter %s (input hidden): ", args[0]))
			if err != nil {
				return err
			}
			if secret == "" {
				return fmt.Errorf("secret cannot be empty")
			}
			if err := keyring.Set(ServiceName, args[0], secret); err != nil {
				return fmt.Errorf("error saving to keyring: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s to system keyring\n", args[0])
			return nil
		},
	}
}

func newConfigGetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get-key <key-name>",
		Short: "Show a masked API key from the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := keyring.Get(ServiceName, args[0])
			if err != nil {
				return fmt.Errorf("key not found in keyring, set it with 'chatdb config set-key %s': %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], maskSecret(secret))
			return nil
		},
	}
}

func newConfigDeleteKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-key <key-name>",
		Short: "Delete an API key from the system keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keyring.Delete(ServiceName, args[0]); err != nil {
				return fmt.Errorf("error deleting key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from system keyring\n", args[0])
			return nil
		},
	}
}

func newConfigListKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-keys",
		Short: "List the secret names the keyring can hold",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, k := range ListAvailableSecretKeys() {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the chatdb version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chatdb %s\n", version.String())
		},
	}
}

func checkKeyName(name string) error {
	keys := ListAvailableSecretKeys()
	if slices.Contains(keys, name) {
		return nil
	}
	return fmt.Errorf("invalid key name %q (available: %s)", name, strings.Join(keys, ", "))
}

// maskSecret keeps the first and last four characters of long secrets.
func maskSecret(secret string) string {
	switch {
	case secret == "":
		return ""
	case len(secret) <= 8:
		return "****"
	default:
		return secret[:4] + "..." + secret[len(secret)-4:]
	}
}

// configView renders c with the config file's key names.
func configView(c Config) map[string]interface{} {
	return map[string]interface{}{
		"llm": map[string]interface{}{
			"provider":           c.LLM.Provider,
			"model":              c.LLM.Model,
			"openai_api_key":     c.LLM.OpenAIAPIKey,
			"openai_endpoint":    c.LLM.OpenAIEndpoint,
			"anthropic_api_key":  c.LLM.AnthropicAPIKey,
			"anthropic_base_url": c.LLM.AnthropicBaseURL,
			"temperature":        c.LLM.Temperature,
			"max_tokens":         c.LLM.MaxTokens,
			"timeout_seconds":    c.LLM.TimeoutSeconds,
		},
		"store":    map[string]interface{}{"uri": c.Store.URI},
		"settings": map[string]interface{}{"path": c.Settings.Path},
		"chat":     map[string]interface{}{"max_retries": c.Chat.MaxRetries, "stream": c.Chat.Stream},
		"logging":  map[string]interface{}{"level": c.Logging.Level, "format": c.Logging.Format},
	}
}

// GenerateExampleConfig returns a commented chatdb.yaml.
func GenerateExampleConfig() string {
	return heredoc.Doc(`
		# chatdb configuration
		# Priority: CLI flags > CHATDB_* environment variables > this file > defaults

		llm:
		  # openai or anthropic; inferred from the model name when empty
		  provider: ""
		  model: gpt-4.1
		  temperature: 0
		  max_tokens: 4096
		  timeout_seconds: 120
		  # API keys are better kept in the keyring: chatdb config set-key openai_api_key

		store:
		  # SQLite path, "memory", or redis://host:6379/0
		  uri: ~/.chatdb/conversations.db

		settings:
		  path: ~/.chatdb/settings.yaml

		chat:
		  max_retries: 3
		  stream: true

		logging:
		  level: warn
		  format: console
	`)
}
