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

// Package mock provides a scripted LLM provider for tests and offline use.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/teradata-labs/chatdb/pkg/shuttle"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// Step produces the response for one provider call. messages is the full
// history sent on that call.
type Step func(messages []types.Message) (*types.LLMResponse, error)

// Provider replays Steps in order. When the script runs out the last step
// is repeated. Streaming splits content on spaces.
type Provider struct {
	mu    sync.Mutex
	steps []Step
	calls int
	seen  [][]types.Message

	model string
}

// New creates a provider that runs steps in order.
func New(steps ...Step) *Provider {
	return &Provider{steps: steps, model: "mock-model"}
}

// Text answers with content.
func Text(content string) Step {
	return func([]types.Message) (*types.LLMResponse, error) {
		return &types.LLMResponse{Content: content, StopReason: "end_turn"}, nil
	}
}

// CallTool requests one tool call.
func CallTool(id, name string, input map[string]interface{}) Step {
	return func([]types.Message) (*types.LLMResponse, error) {
		return &types.LLMResponse{
			StopReason: "tool_use",
			ToolCalls:  []types.ToolCall{{ID: id, Name: name, Input: input}},
		}, nil
	}
}

// WithText sets the text that accompanies step's response, such as the
// preamble a model writes before a tool call.
func WithText(content string, step Step) Step {
	return func(messages []types.Message) (*types.LLMResponse, error) {
		resp, err := step(messages)
		if err != nil {
			return nil, err
		}
		resp.Content = content
		return resp, nil
	}
}

// Fail returns err.
func Fail(err error) Step {
	return func([]types.Message) (*types.LLMResponse, error) {
		return nil, err
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return "mock" }

// Model returns the model identifier.
func (p *Provider) Model() string { return p.model }

// Chat runs the next step.
func (p *Provider) Chat(ctx context.Context, messages []types.Message, tools []shuttle.Tool) (*types.LLMResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	if len(p.steps) == 0 {
		p.mu.Unlock()
		return nil, fmt.Errorf("mock provider has no script")
	}
	idx := p.calls
	if idx >= len(p.steps) {
		idx = len(p.steps) - 1
	}
	p.calls++
	p.seen = append(p.seen, append([]types.Message(nil), messages...))
	step := p.steps[idx]
	p.mu.Unlock()

	return step(messages)
}

// ChatStream runs the next step and emits its content word by word.
func (p *Provider) ChatStream(ctx context.Context, messages []types.Message, tools []shuttle.Tool,
	tokenCallback types.TokenCallback) (*types.LLMResponse, error) {

	resp, err := p.Chat(ctx, messages, tools)
	if err != nil {
		return nil, err
	}
	if tokenCallback != nil && resp.Content != "" {
		words := strings.SplitAfter(resp.Content, " ")
		for _, w := range words {
			tokenCallback(w)
		}
	}
	return resp, nil
}

// Calls returns how many times the provider was called.
func (p *Provider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// History returns the messages sent on call i.
func (p *Provider) History(i int) []types.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 || i >= len(p.seen) {
		return nil
	}
	return p.seen[i]
}

var _ types.StreamingLLMProvider = (*Provider)(nil)
