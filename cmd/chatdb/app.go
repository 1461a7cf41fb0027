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
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	chatdbconfig "github.com/teradata-labs/chatdb/pkg/config"
	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/llm/factory"
	"github.com/teradata-labs/chatdb/pkg/session"
	"github.com/teradata-labs/chatdb/pkg/settings"
	"github.com/teradata-labs/chatdb/pkg/storage/backend"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// app is the state shared by the commands of one invocation.
type app struct {
	config *Config
	logger *zap.Logger
	state  *session.State
}

// openApp loads the settings, opens the conversation store and connects the
// configured databases. Unreachable databases are reported, not fatal. A nil
// providers builds providers from cfg.
func openApp(ctx context.Context, cfg *Config, logger *zap.Logger, providers session.ProviderFactory) (*app, error) {
	if _, err := chatdbconfig.EnsureDataDir(); err != nil {
		return nil, err
	}
	st, err := settings.Load(cfg.Settings.Path)
	if err != nil {
		return nil, err
	}
	store, err := backend.Open(ctx, cfg.Store.URI, logger)
	if err != nil {
		return nil, fmt.Errorf("open conversation store: %w", err)
	}

	a := &app{config: cfg, logger: logger}
	if providers == nil {
		providers = session.ProviderFunc(a.createProvider)
	}
	a.state = session.New(st,
		session.WithStore(store),
		session.WithProviders(providers),
		session.WithRunner(conversation.NewRunner(
			conversation.WithMaxRetries(cfg.Chat.MaxRetries),
			conversation.WithRunnerLogger(logger))),
		session.WithLogger(logger))

	if err := a.state.LoadConversations(ctx); err != nil {
		_ = a.state.Close()
		return nil, err
	}
	if err := a.state.Connect(ctx); err != nil {
		logger.Warn("some databases could not be connected", zap.Error(err))
	}
	return a, nil
}

// createProvider builds a provider with keys from the config, falling back
// to the keys kept in the settings.
func (a *app) createProvider(provider, model string) (types.LLMProvider, error) {
	st := a.state.Settings()
	fc := factory.FactoryConfig{
		DefaultProvider:  a.config.LLM.Provider,
		DefaultModel:     a.config.LLM.Model,
		OpenAIAPIKey:     firstNonEmpty(a.config.LLM.OpenAIAPIKey, st.OpenAIKey),
		OpenAIEndpoint:   a.config.LLM.OpenAIEndpoint,
		AnthropicAPIKey:  firstNonEmpty(a.config.LLM.AnthropicAPIKey, st.AnthropicKey),
		AnthropicBaseURL: a.config.LLM.AnthropicBaseURL,
		MaxTokens:        a.config.LLM.MaxTokens,
		Temperature:      a.config.LLM.Temperature,
		Timeout:          a.config.LLM.TimeoutSeconds,
		Logger:           a.logger,
	}
	return factory.NewProviderFactory(fc).CreateProvider(provider, model)
}

// saveSettings writes the session settings back to disk.
func (a *app) saveSettings() error {
	return a.state.Settings().Save(a.config.Settings.Path)
}

// close persists the settings and releases every resource.
func (a *app) close() error {
	return errors.Join(a.saveSettings(), a.state.Close())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
