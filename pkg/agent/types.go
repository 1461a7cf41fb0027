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
package agent

import (
	"errors"
	"time"

	"github.com/teradata-labs/chatdb/pkg/shuttle"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// Type aliases for the shared message types.
type (
	Message     = types.Message
	ToolCall    = types.ToolCall
	LLMResponse = types.LLMResponse
	LLMProvider = types.LLMProvider
)

// ErrMaxTurnsExceeded is returned when the model keeps requesting tools past
// Config.MaxTurns.
var ErrMaxTurnsExceeded = errors.New("maximum conversation turns exceeded")

// Config holds agent configuration.
type Config struct {
	// Name is the agent name (used for identification and logging)
	Name string

	// SystemPrompt is sent first on every provider call.
	SystemPrompt string

	// MaxTurns is the maximum number of provider calls per Chat.
	MaxTurns int

	// MaxToolExecutions caps tool calls per Chat.
	MaxToolExecutions int

	// Retry configures retries of failed provider calls.
	Retry RetryConfig
}

// RetryConfig configures exponential backoff for provider calls. Streaming
// calls are never retried because chunks may already have been emitted.
type RetryConfig struct {
	Enabled      bool
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Name:              "chatdb",
		MaxTurns:          10,
		MaxToolExecutions: 20,
		Retry: RetryConfig{
			Enabled:      true,
			MaxRetries:   2,
			InitialDelay: time.Second,
			MaxDelay:     10 * time.Second,
			Multiplier:   2,
		},
	}
}

// Response is the result of one Chat call.
type Response struct {
	// Content is the final assistant text.
	Content string

	ToolExecutions []ToolExecution

	Usage types.Usage

	// Turns is the number of provider calls made.
	Turns int
}

// ToolExecution records one tool call made while answering.
type ToolExecution struct {
	ToolName string
	Input    map[string]interface{}
	Result   *shuttle.Result
	Error    error
}
