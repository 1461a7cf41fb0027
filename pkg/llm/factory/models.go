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

package factory

import (
	"sort"
	"strings"
)

// ModelInfo describes a selectable model.
type ModelInfo struct {
	ID            string
	Name          string
	Provider      string
	ContextWindow int
}

var knownModels = []ModelInfo{
	{ID: "gpt-4.1", Name: "GPT-4.1", Provider: ProviderOpenAI, ContextWindow: 1047576},
	{ID: "gpt-4.1-mini", Name: "GPT-4.1 mini", Provider: ProviderOpenAI, ContextWindow: 1047576},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI, ContextWindow: 128000},
	{ID: "gpt-4o-mini", Name: "GPT-4o mini", Provider: ProviderOpenAI, ContextWindow: 128000},
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5", Provider: ProviderAnthropic, ContextWindow: 200000},
	{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5", Provider: ProviderAnthropic, ContextWindow: 200000},
	{ID: "claude-opus-4-1-20250805", Name: "Claude Opus 4.1", Provider: ProviderAnthropic, ContextWindow: 200000},
}

// Models returns the known models, optionally filtered by provider, sorted
// by provider then ID.
func Models(provider string) []ModelInfo {
	var out []ModelInfo
	for _, m := range knownModels {
		if provider == "" || m.Provider == provider {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Provider != out[j].Provider {
			return out[i].Provider < out[j].Provider
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LookupModel returns the known model with id.
func LookupModel(id string) (ModelInfo, bool) {
	for _, m := range knownModels {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}

// InferProvider picks the provider for model: known models use their
// registered provider, "claude" prefixes map to Anthropic and GPT or o-series
// names to OpenAI. Anything else uses fallback, or OpenAI when empty.
func InferProvider(model, fallback string) string {
	if m, ok := LookupModel(model); ok {
		return m.Provider
	}
	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "claude"):
		return ProviderAnthropic
	case strings.HasPrefix(lower, "gpt"), strings.HasPrefix(lower, "o1"), strings.HasPrefix(lower, "o3"), strings.HasPrefix(lower, "o4"):
		return ProviderOpenAI
	}
	if fallback != "" {
		return fallback
	}
	return ProviderOpenAI
}
