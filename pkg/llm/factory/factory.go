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

// Package factory builds LLM providers from configuration.
package factory

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/llm/anthropic"
	"github.com/teradata-labs/chatdb/pkg/llm/openai"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// DefaultModel is used when neither the conversation nor the configuration
// names one.
const DefaultModel = openai.DefaultModel

// ProviderFactory creates LLM providers based on configuration.
type ProviderFactory struct {
	config FactoryConfig
}

// FactoryConfig holds configuration for creating LLM providers.
type FactoryConfig struct {
	// DefaultProvider is used when the model name does not identify one.
	DefaultProvider string
	DefaultModel    string

	OpenAIAPIKey   string
	OpenAIEndpoint string

	AnthropicAPIKey  string
	AnthropicBaseURL string

	// Common settings
	MaxTokens   int
	Temperature float64
	Timeout     int // seconds

	Logger *zap.Logger
}

// NewProviderFactory creates a new provider factory.
func NewProviderFactory(config FactoryConfig) *ProviderFactory {
	if config.DefaultModel == "" {
		config.DefaultModel = DefaultModel
	}
	if config.Timeout == 0 {
		config.Timeout = 120
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	return &ProviderFactory{config: config}
}

// CreateProvider creates a provider for model. The provider name may be
// empty, in which case it is inferred from the model.
func (f *ProviderFactory) CreateProvider(provider, model string) (types.LLMProvider, error) {
	if model == "" {
		model = f.config.DefaultModel
	}
	if provider == "" {
		provider = InferProvider(model, f.config.DefaultProvider)
	}

	switch provider {
	case ProviderOpenAI:
		return f.createOpenAIProvider(model)
	case ProviderAnthropic:
		return f.createAnthropicProvider(model)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func (f *ProviderFactory) createOpenAIProvider(model string) (types.LLMProvider, error) {
	apiKey := f.config.OpenAIAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key not configured (set llm.openai_api_key or OPENAI_API_KEY)")
	}

	return openai.NewClient(openai.Config{
		APIKey:      apiKey,
		Model:       model,
		Endpoint:    f.config.OpenAIEndpoint,
		MaxTokens:   f.config.MaxTokens,
		Temperature: f.config.Temperature,
		Timeout:     time.Duration(f.config.Timeout) * time.Second,
		Logger:      f.config.Logger,
	}), nil
}

func (f *ProviderFactory) createAnthropicProvider(model string) (types.LLMProvider, error) {
	apiKey := f.config.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key not configured (set llm.anthropic_api_key or ANTHROPIC_API_KEY)")
	}

	return anthropic.NewClient(anthropic.Config{
		APIKey:      apiKey,
		Model:       model,
		BaseURL:     f.config.AnthropicBaseURL,
		MaxTokens:   f.config.MaxTokens,
		Temperature: f.config.Temperature,
		Timeout:     time.Duration(f.config.Timeout) * time.Second,
		Logger:      f.config.Logger,
	}), nil
}
