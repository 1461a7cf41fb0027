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

// Package agent runs the tool-calling loop between an LLM provider and the
// shuttle tools registered with it.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/shuttle"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// Agent answers user messages, calling tools until the model produces a
// final text answer. An Agent holds one conversation's memory and runs one
// Chat at a time.
type Agent struct {
	llm      LLMProvider
	tools    *shuttle.Registry
	executor *shuttle.Executor
	memory   *Memory
	config   *Config
	logger   *zap.Logger
}

// Option configures an Agent.
type Option func(*Agent)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(a *Agent) {
		if config != nil {
			a.config = config
		}
	}
}

// WithMemory uses memory instead of a fresh one.
func WithMemory(memory *Memory) Option {
	return func(a *Agent) {
		if memory != nil {
			a.memory = memory
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithTools registers tools.
func WithTools(tools ...shuttle.Tool) Option {
	return func(a *Agent) {
		for _, t := range tools {
			a.tools.Register(t)
		}
	}
}

// WithSystemPrompt sets the system prompt.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.config.SystemPrompt = prompt
	}
}

// WithName sets the agent name.
func WithName(name string) Option {
	return func(a *Agent) {
		a.config.Name = name
	}
}

// NewAgent creates an agent over llmProvider.
func NewAgent(llmProvider LLMProvider, opts ...Option) *Agent {
	a := &Agent{
		llm:    llmProvider,
		tools:  shuttle.NewRegistry(),
		memory: NewMemory(),
		config: DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.config.MaxTurns <= 0 {
		a.config.MaxTurns = DefaultConfig().MaxTurns
	}
	if a.config.MaxToolExecutions <= 0 {
		a.config.MaxToolExecutions = DefaultConfig().MaxToolExecutions
	}
	a.executor = shuttle.NewExecutor(a.tools, a.logger)
	a.memory.SetSystemPrompt(a.config.SystemPrompt)
	return a
}

// RegisterTool adds a tool to the agent.
func (a *Agent) RegisterTool(tool shuttle.Tool) {
	a.tools.Register(tool)
}

// ListTools returns the registered tool names in registration order.
func (a *Agent) ListTools() []string {
	return a.tools.List()
}

// Memory returns the agent's conversation memory.
func (a *Agent) Memory() *Memory {
	return a.memory
}

// Name returns the agent name.
func (a *Agent) Name() string {
	return a.config.Name
}

// Model returns the provider's model identifier.
func (a *Agent) Model() string {
	return a.llm.Model()
}

// Chat answers userMessage and returns the complete response.
func (a *Agent) Chat(ctx context.Context, userMessage string) (*Response, error) {
	return a.run(ctx, userMessage, nil)
}

// ChatStream answers userMessage, passing the answer's text chunks to
// tokenCallback in the order the provider produced them. Chunks of a model
// turn are delivered once the turn ends without tool calls, so the streamed
// text always equals Response.Content. Providers without streaming support
// deliver the answer as a single chunk.
func (a *Agent) ChatStream(ctx context.Context, userMessage string, tokenCallback types.TokenCallback) (*Response, error) {
	if tokenCallback == nil {
		tokenCallback = func(string) {}
	}
	return a.run(ctx, userMessage, tokenCallback)
}

// run is the conversation loop. A failed tool call ends the loop after the
// results of every call in that turn are recorded, and its error is
// returned as produced by the tool so callers can classify it.
func (a *Agent) run(ctx context.Context, userMessage string, tokenCallback types.TokenCallback) (*Response, error) {
	a.memory.AddMessage(Message{Role: types.RoleUser, Content: userMessage})

	tools := a.tools.ListTools()
	resp := &Response{}
	toolExecutionCount := 0

	for resp.Turns < a.config.MaxTurns {
		resp.Turns++

		var pending []string
		var turnCallback types.TokenCallback
		if tokenCallback != nil {
			turnCallback = func(chunk string) { pending = append(pending, chunk) }
		}

		llmResp, err := a.chatWithRetry(ctx, a.memory.Messages(), tools, turnCallback)
		if err != nil {
			return nil, err
		}
		resp.Usage.Add(llmResp.Usage)

		if len(llmResp.ToolCalls) == 0 {
			// Only the answering turn reaches the callback; text that
			// precedes a tool call stays in memory.
			for _, chunk := range pending {
				tokenCallback(chunk)
			}
			a.memory.AddMessage(Message{Role: types.RoleAssistant, Content: llmResp.Content})
			resp.Content = llmResp.Content
			return resp, nil
		}

		if toolExecutionCount+len(llmResp.ToolCalls) > a.config.MaxToolExecutions {
			return nil, fmt.Errorf("%w: more than %d tool executions", ErrMaxTurnsExceeded, a.config.MaxToolExecutions)
		}

		a.memory.AddMessage(Message{
			Role:      types.RoleAssistant,
			Content:   llmResp.Content,
			ToolCalls: llmResp.ToolCalls,
		})

		var toolErr error
		for _, call := range llmResp.ToolCalls {
			toolExecutionCount++
			result, err := a.executor.Execute(ctx, call.Name, call.Input)

			resp.ToolExecutions = append(resp.ToolExecutions, ToolExecution{
				ToolName: call.Name,
				Input:    call.Input,
				Result:   result,
				Error:    err,
			})
			a.memory.AddMessage(Message{
				Role:       types.RoleTool,
				Content:    formatToolResult(result, err),
				ToolUseID:  call.ID,
				ToolResult: result,
			})

			if err != nil {
				a.logger.Info("tool call failed",
					zap.String("agent", a.config.Name),
					zap.String("tool", call.Name),
					zap.Error(err))
				if toolErr == nil {
					toolErr = err
				}
			}
		}

		if toolErr != nil {
			return nil, toolErr
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %d turns", ErrMaxTurnsExceeded, a.config.MaxTurns)
}

// formatToolResult renders a tool outcome as the text the model sees.
func formatToolResult(result *shuttle.Result, err error) string {
	if err != nil {
		return "Error: " + err.Error()
	}
	if result == nil || result.Data == nil {
		return ""
	}
	if s, ok := result.Data.(string); ok {
		return s
	}
	data, mErr := json.Marshal(result.Data)
	if mErr != nil {
		return fmt.Sprintf("%v", result.Data)
	}
	return string(data)
}
