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
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/internal/log"
	"github.com/teradata-labs/chatdb/internal/version"
	"github.com/teradata-labs/chatdb/pkg/session"
)

// cli carries the state of one command tree: its viper instance, the loaded
// configuration and the lazily opened app.
type cli struct {
	cfgFile string
	viper   *viper.Viper
	config  *Config
	logger  *zap.Logger
	app     *app

	// providers overrides the configured LLM providers.
	providers session.ProviderFactory
	stdin     io.Reader
	lines     *bufio.Reader
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, c := newRootCmd()
	if err := execute(ctx, root, c); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// execute runs the command tree and always releases the app, even when the
// command failed.
func execute(ctx context.Context, root *cobra.Command, c *cli) error {
	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.close())
}

func newRootCmd() (*cobra.Command, *cli) {
	c := &cli{viper: viper.New(), stdin: os.Stdin}

	root := &cobra.Command{
		Use:   "chatdb",
		Short: "Chat with your SQL databases through an LLM",
		Long: heredoc.Doc(`
			chatdb lets you ask questions about one or more SQL databases in plain
			language. An LLM agent lists databases and tables, reads schemas and
			runs SQL through a small set of tools, and every query it runs is kept
			with the answer.

			Databases are configured with 'chatdb db add'. Conversations are created
			with 'chatdb conversation new' and continued with 'chatdb chat'.
		`),
		Version:       version.Get(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return c.setup()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default: $CHATDB_DATA_DIR/chatdb.yaml)")

	flags.String("llm-provider", "", "LLM provider (openai, anthropic); inferred from the model when empty")
	flags.String("model", "", "default model for new conversations")
	flags.String("openai-key", "", "OpenAI API key (or use keyring/env/settings)")
	flags.String("anthropic-key", "", "Anthropic API key (or use keyring/env/settings)")
	flags.String("openai-endpoint", "", "OpenAI-compatible chat completions endpoint")
	flags.Float64("temperature", 0, "LLM temperature")
	flags.Int("max-tokens", 4096, "maximum tokens per response")

	flags.String("store", "", "conversation store: SQLite path, memory or redis:// URL")
	flags.String("settings", "", "settings file (default: $CHATDB_DATA_DIR/settings.yaml)")
	flags.Int("max-retries", 3, "automatic retries after recoverable query errors")

	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "console", "log format (console, json)")

	bind := map[string]string{
		"llm.provider":          "llm-provider",
		"llm.model":             "model",
		"llm.openai_api_key":    "openai-key",
		"llm.anthropic_api_key": "anthropic-key",
		"llm.openai_endpoint":   "openai-endpoint",
		"llm.temperature":       "temperature",
		"llm.max_tokens":        "max-tokens",
		"store.uri":             "store",
		"settings.path":         "settings",
		"chat.max_retries":      "max-retries",
		"logging.level":         "log-level",
		"logging.format":        "log-format",
	}
	for key, flag := range bind {
		_ = c.viper.BindPFlag(key, flags.Lookup(flag))
	}

	root.AddCommand(
		newChatCmd(c),
		newDBCmd(c),
		newVectorStoreCmd(c),
		newConversationCmd(c),
		newBackupCmd(c),
		newRestoreCmd(c),
		newConfigCmd(c),
		newVersionCmd(),
	)
	return root, c
}

// setup loads the configuration and installs the process logger.
func (c *cli) setup() error {
	cfg, err := LoadConfig(c.viper, c.cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := log.Setup(log.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}
	c.config = cfg
	c.logger = logger
	return nil
}

// session opens the app on first use.
func (c *cli) session(ctx context.Context) (*app, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := openApp(ctx, c.config, c.logger, c.providers)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) close() error {
	defer func() { _ = log.Sync() }()
	if c.app == nil {
		return nil
	}
	err := c.app.close()
	c.app = nil
	return err
}
