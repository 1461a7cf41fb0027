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

// Package anthropic implements types.StreamingLLMProvider over the Anthropic
// Messages API using the official SDK.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/shuttle"
	"github.com/teradata-labs/chatdb/pkg/types"
)

const (
	// DefaultModel is the default Claude model
	DefaultModel = "claude-sonnet-4-5-20250929"
	// DefaultMaxTokens is the default maximum tokens per request
	DefaultMaxTokens = 4096
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 120 * time.Second
)

// Config holds configuration for the Anthropic client.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the API host, mostly for tests.
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	MaxRetries  int
	Logger      *zap.Logger
}

// Client implements the LLMProvider interface for Anthropic's API.
type Client struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	logger      *zap.Logger
}

// NewClient creates a new Anthropic client.
func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "anthropic"
}

// Model returns the model identifier.
func (c *Client) Model() string {
	return c.model
}

// Chat sends a conversation to Claude and returns the response.
func (c *Client) Chat(ctx context.Context, messages []types.Message, tools []shuttle.Tool) (*types.LLMResponse, error) {
	params, err := c.buildParams(messages, tools)
	if err != nil {
		return nil, err
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic messages request failed: %w", err)
	}
	return convertResponse(message), nil
}

// ChatStream streams text deltas to tokenCallback and returns the assembled
// response when the stream ends.
func (c *Client) ChatStream(ctx context.Context, messages []types.Message, tools []shuttle.Tool,
	tokenCallback types.TokenCallback) (*types.LLMResponse, error) {

	params, err := c.buildParams(messages, tools)
	if err != nil {
		return nil, err
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	defer stream.Close()

	var (
		content   strings.Builder
		resp      types.LLMResponse
		toolIndex = make(map[int64]int)
		inputs    = make(map[int64]*strings.Builder)
	)

	for stream.Next() {
		event := stream.Current()

		switch event.Type {
		case "message_start":
			resp.Usage.InputTokens = int(event.Message.Usage.InputTokens)

		case "content_block_start":
			if event.ContentBlock.Type == "tool_use" {
				toolIndex[event.Index] = len(resp.ToolCalls)
				inputs[event.Index] = &strings.Builder{}
				resp.ToolCalls = append(resp.ToolCalls, types.ToolCall{
					ID:    event.ContentBlock.ID,
					Name:  event.ContentBlock.Name,
					Input: map[string]interface{}{},
				})
			}

		case "content_block_delta":
			switch event.Delta.Type {
			case "text_delta":
				if event.Delta.Text != "" {
					content.WriteString(event.Delta.Text)
					if tokenCallback != nil {
						tokenCallback(event.Delta.Text)
					}
				}
			case "input_json_delta":
				if buf, ok := inputs[event.Index]; ok {
					buf.WriteString(event.Delta.PartialJSON)
				}
			}

		case "content_block_stop":
			if buf, ok := inputs[event.Index]; ok {
				if buf.Len() > 0 {
					resp.ToolCalls[toolIndex[event.Index]].Input = decodeInput([]byte(buf.String()))
				}
				delete(inputs, event.Index)
			}

		case "message_delta":
			if event.Delta.StopReason != "" {
				resp.StopReason = string(event.Delta.StopReason)
			}
			if event.Usage.OutputTokens > 0 {
				resp.Usage.OutputTokens = int(event.Usage.OutputTokens)
			}
		}
	}

	// EOF is the normal end of stream
	if err := stream.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("anthropic stream failed: %w", err)
	}

	resp.Content = content.String()
	resp.Usage.TotalTokens = resp.Usage.InputTokens + resp.Usage.OutputTokens
	return &resp, nil
}

func (c *Client) buildParams(messages []types.Message, tools []shuttle.Tool) (anthropic.MessageNewParams, error) {
	system, sdkMessages := convertMessages(messages)
	if len(sdkMessages) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("no messages to send")
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		Messages:  sdkMessages,
		MaxTokens: c.maxTokens,
	}
	if c.temperature > 0 {
		params.Temperature = anthropic.Float(c.temperature)
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}
	return params, nil
}

// convertMessages splits out the system prompt and converts the rest.
// Consecutive tool results are grouped into one user message, as the API
// requires every result for a tool_use turn in the following message.
func convertMessages(messages []types.Message) (string, []anthropic.MessageParam) {
	var (
		systemPrompts []string
		sdkMessages   []anthropic.MessageParam
		lastWasTool   bool
	)

	for _, msg := range messages {
		isTool := msg.Role == types.RoleTool

		switch msg.Role {
		case types.RoleSystem:
			if msg.Content != "" {
				systemPrompts = append(systemPrompts, msg.Content)
			}
			// system messages do not break a run of tool results
			isTool = lastWasTool

		case types.RoleUser:
			if msg.Content != "" {
				sdkMessages = append(sdkMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
			}

		case types.RoleAssistant:
			var content []anthropic.ContentBlockParamUnion
			if msg.Content != "" {
				content = append(content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input interface{} = map[string]interface{}{}
				if tc.Input != nil {
					input = tc.Input
				}
				content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
			}
			if len(content) > 0 {
				sdkMessages = append(sdkMessages, anthropic.NewAssistantMessage(content...))
			}

		case types.RoleTool:
			isError := msg.ToolResult != nil && !msg.ToolResult.Success
			block := anthropic.NewToolResultBlock(msg.ToolUseID, msg.Content, isError)
			if lastWasTool && len(sdkMessages) > 0 {
				last := &sdkMessages[len(sdkMessages)-1]
				last.Content = append(last.Content, block)
			} else {
				sdkMessages = append(sdkMessages, anthropic.NewUserMessage(block))
			}
		}

		lastWasTool = isTool
	}

	return strings.Join(systemPrompts, "\n\n"), sdkMessages
}

func convertTools(tools []shuttle.Tool) []anthropic.ToolUnionParam {
	unions := make([]anthropic.ToolUnionParam, 0, len(tools))

	for _, tool := range tools {
		param := anthropic.ToolParam{
			Name:        tool.Name(),
			Description: anthropic.String(tool.Description()),
			InputSchema: anthropic.ToolInputSchemaParam{Properties: map[string]interface{}{}},
		}
		if schema := shuttle.NormalizeSchema(tool.InputSchema()); schema != nil {
			if len(schema.Properties) > 0 {
				param.InputSchema.Properties = schema.Properties
			}
			param.InputSchema.Required = schema.Required
		}
		unions = append(unions, anthropic.ToolUnionParam{OfTool: &param})
	}

	return unions
}

func convertResponse(message *anthropic.Message) *types.LLMResponse {
	resp := &types.LLMResponse{
		StopReason: string(message.StopReason),
		Usage: types.Usage{
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
			TotalTokens:  int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}

	for _, block := range message.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, types.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: decodeInput(block.Input),
			})
		}
	}
	return resp
}

func decodeInput(raw []byte) map[string]interface{} {
	var input map[string]interface{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &input); err != nil {
			return map[string]interface{}{"_raw": string(raw)}
		}
	}
	if input == nil {
		input = map[string]interface{}{}
	}
	return input
}

// Ensure Client implements StreamingLLMProvider interface.
var _ types.StreamingLLMProvider = (*Client)(nil)
