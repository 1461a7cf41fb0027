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

// Package openai implements types.StreamingLLMProvider over the OpenAI chat
// completions API.
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/shuttle"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// Client implements the LLMProvider interface for OpenAI's API.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	httpClient  *http.Client
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

// Config holds configuration for the OpenAI client.
type Config struct {
	APIKey      string
	Model       string        // Default: gpt-4.1
	Endpoint    string        // Default: https://api.openai.com/v1/chat/completions
	Timeout     time.Duration // Default: 120s
	MaxTokens   int           // Default: 4096
	Temperature float64       // Default: provider default
	Logger      *zap.Logger
}

// Default OpenAI configuration values.
// The endpoint can be overridden with OPENAI_API_ENDPOINT.
const (
	DefaultModel     = "gpt-4.1"
	DefaultEndpoint  = "https://api.openai.com/v1/chat/completions"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 4096
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("OpenAI API error (status %d, type %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("OpenAI API error (status %d): %s", e.StatusCode, e.Message)
}

// NewClient creates a new OpenAI client.
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Endpoint == "" {
		if envEndpoint := os.Getenv("OPENAI_API_ENDPOINT"); envEndpoint != "" {
			config.Endpoint = envEndpoint
		} else {
			config.Endpoint = DefaultEndpoint
		}
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultMaxTokens
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &Client{
		apiKey:      config.APIKey,
		model:       config.Model,
		endpoint:    config.Endpoint,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		logger:      config.Logger,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "openai"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation to OpenAI and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []shuttle.Tool) (*types.LLMResponse, error) {
	req, err := c.buildRequest(messages, tools, false)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, &APIError{StatusCode: httpResp.StatusCode, Type: resp.Error.Type, Message: resp.Error.Message}
	}

	return convertResponse(&resp), nil
}

// ChatStream streams text deltas to tokenCallback using stream=true and
// returns the assembled response once the server sends [DONE].
func (c *Client) ChatStream(ctx context.Context, messages []types.Message,
	tools []shuttle.Tool, tokenCallback types.TokenCallback) (*types.LLMResponse, error) {

	req, err := c.buildRequest(messages, tools, true)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var (
		content      strings.Builder
		usage        types.Usage
		finishReason string
		calls        = make(map[int]*streamedCall)
	)

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		// SSE format: "data: <json>" or "data: [DONE]"
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk ChatCompletionStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			c.logger.Debug("skipping malformed stream chunk", zap.Error(err))
			continue
		}

		if len(chunk.Choices) > 0 {
			choice := chunk.Choices[0]

			if choice.Delta.Content != nil && *choice.Delta.Content != "" {
				content.WriteString(*choice.Delta.Content)
				if tokenCallback != nil {
					tokenCallback(*choice.Delta.Content)
				}
			}

			for _, delta := range choice.Delta.ToolCalls {
				call, ok := calls[delta.Index]
				if !ok {
					call = &streamedCall{}
					calls[delta.Index] = call
				}
				if delta.ID != "" {
					call.id = delta.ID
				}
				if delta.Function.Name != "" {
					call.name = delta.Function.Name
				}
				call.args.WriteString(delta.Function.Arguments)
			}

			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}
		}

		if chunk.Usage != nil {
			usage = convertUsage(*chunk.Usage)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading stream: %w", err)
	}

	indexes := make([]int, 0, len(calls))
	for idx := range calls {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)

	resp := &types.LLMResponse{
		Content:    content.String(),
		StopReason: stopReason(finishReason),
		Usage:      usage,
	}
	for _, idx := range indexes {
		call := calls[idx]
		resp.ToolCalls = append(resp.ToolCalls, types.ToolCall{
			ID:    call.id,
			Name:  call.name,
			Input: parseArguments(call.args.String()),
		})
	}
	return resp, nil
}

type streamedCall struct {
	id   string
	name string
	args strings.Builder
}

func (c *Client) buildRequest(messages []types.Message, tools []shuttle.Tool, stream bool) (*ChatCompletionRequest, error) {
	apiTools, err := convertTools(tools)
	if err != nil {
		return nil, err
	}

	req := &ChatCompletionRequest{
		Model:       c.model,
		Messages:    convertMessages(messages),
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if len(apiTools) > 0 {
		req.Tools = apiTools
		req.ToolChoice = "auto"
	}
	if stream {
		req.Stream = true
		req.StreamOptions = &StreamOptions{IncludeUsage: true}
	}
	return req, nil
}

// send posts req and returns the response when the status is 200. Any
// other status is decoded into an *APIError.
func (c *Client) send(ctx context.Context, req *ChatCompletionRequest) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(httpResp.Body)

		apiErr := &APIError{StatusCode: httpResp.StatusCode, Message: strings.TrimSpace(string(respBody))}
		var decoded ChatCompletionResponse
		if json.Unmarshal(respBody, &decoded) == nil && decoded.Error != nil {
			apiErr.Type = decoded.Error.Type
			apiErr.Message = decoded.Error.Message
		}
		return nil, apiErr
	}
	return httpResp, nil
}

// convertMessages converts agent messages to OpenAI format.
func convertMessages(messages []types.Message) []ChatMessage {
	apiMessages := make([]ChatMessage, 0, len(messages))

	for _, msg := range messages {
		content := msg.Content
		switch msg.Role {
		case types.RoleSystem, types.RoleUser:
			apiMessages = append(apiMessages, ChatMessage{Role: msg.Role, Content: &content})

		case types.RoleAssistant:
			apiMsg := ChatMessage{Role: types.RoleAssistant}
			if content != "" || len(msg.ToolCalls) == 0 {
				apiMsg.Content = &content
			}
			for _, tc := range msg.ToolCalls {
				argsJSON, err := json.Marshal(tc.Input)
				if err != nil || tc.Input == nil {
					argsJSON = []byte("{}")
				}
				apiMsg.ToolCalls = append(apiMsg.ToolCalls, ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: FunctionCall{
						Name:      tc.Name,
						Arguments: string(argsJSON),
					},
				})
			}
			apiMessages = append(apiMessages, apiMsg)

		case types.RoleTool:
			apiMessages = append(apiMessages, ChatMessage{
				Role:       types.RoleTool,
				Content:    &content,
				ToolCallID: msg.ToolUseID,
			})
		}
	}

	return apiMessages
}

// convertTools converts shuttle tools to function definitions.
func convertTools(tools []shuttle.Tool) ([]Tool, error) {
	apiTools := make([]Tool, 0, len(tools))

	for _, tool := range tools {
		params := map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
		if schema := shuttle.NormalizeSchema(tool.InputSchema()); schema != nil {
			raw, err := schema.ToJSON()
			if err != nil {
				return nil, fmt.Errorf("tool %s: %w", tool.Name(), err)
			}
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, fmt.Errorf("tool %s: %w", tool.Name(), err)
			}
		}

		apiTools = append(apiTools, Tool{
			Type: "function",
			Function: FunctionDef{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  params,
			},
		})
	}

	return apiTools, nil
}

func convertResponse(resp *ChatCompletionResponse) *types.LLMResponse {
	llmResp := &types.LLMResponse{Usage: convertUsage(resp.Usage)}
	if len(resp.Choices) == 0 {
		return llmResp
	}

	choice := resp.Choices[0]
	llmResp.StopReason = stopReason(choice.FinishReason)
	if choice.Message.Content != nil {
		llmResp.Content = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		llmResp.ToolCalls = append(llmResp.ToolCalls, types.ToolCall{
			ID:    tc.ID,
			Name:  tc.Function.Name,
			Input: parseArguments(tc.Function.Arguments),
		})
	}
	return llmResp
}

func convertUsage(u ChatCompletionUsage) types.Usage {
	return types.Usage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
}

// parseArguments decodes a tool call's JSON arguments. Undecodable input is
// kept under "_raw" so schema validation reports it.
func parseArguments(args string) map[string]interface{} {
	if strings.TrimSpace(args) == "" {
		return map[string]interface{}{}
	}
	var input map[string]interface{}
	if err := json.Unmarshal([]byte(args), &input); err != nil || input == nil {
		return map[string]interface{}{"_raw": args}
	}
	return input
}

// stopReason maps finish_reason onto the provider-neutral stop reasons.
func stopReason(finishReason string) string {
	switch finishReason {
	case "stop":
		return "end_turn"
	case "length":
		return "max_tokens"
	case "tool_calls", "function_call":
		return "tool_use"
	default:
		return finishReason
	}
}

// Ensure Client implements StreamingLLMProvider interface.
var _ types.StreamingLLMProvider = (*Client)(nil)
