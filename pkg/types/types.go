// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package types contains the message and provider types shared by
// pkg/agent and the pkg/llm providers.
package types

import (
	"context"
	"sync"
	"time"

	"github.com/teradata-labs/chatdb/pkg/shuttle"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall represents a tool invocation by the LLM.
type ToolCall struct {
	// ID is the provider's identifier, echoed back in the tool result.
	ID string

	// Name of the tool to invoke
	Name string

	// Input is the decoded argument object.
	Input map[string]interface{}
}

// Message represents one entry of the conversation sent to the LLM.
type Message struct {
	ID string

	// Role is one of RoleSystem, RoleUser, RoleAssistant or RoleTool.
	Role string

	Content string

	// ToolCalls are set on assistant messages that request tools.
	ToolCalls []ToolCall

	// ToolUseID links a tool message to the ToolCall it answers.
	ToolUseID string

	// ToolResult is the structured result behind a tool message.
	ToolResult *shuttle.Result

	Timestamp time.Time
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Add accumulates other into u.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// LLMResponse represents a response from the LLM.
type LLMResponse struct {
	// Content is the text response
	Content string

	// ToolCalls requested by the model. Empty when the turn is final.
	ToolCalls []ToolCall

	// StopReason as reported by the provider
	StopReason string

	Usage Usage
}

// LLMProvider defines the interface for LLM providers.
type LLMProvider interface {
	// Chat sends a conversation to the LLM and returns the response
	Chat(ctx context.Context, messages []Message, tools []shuttle.Tool) (*LLMResponse, error)

	// Name returns the provider name
	Name() string

	// Model returns the model identifier
	Model() string
}

// TokenCallback is called for each text chunk during streaming.
// Implementations should be lightweight and non-blocking.
type TokenCallback func(token string)

// StreamingLLMProvider extends LLMProvider with token streaming support.
type StreamingLLMProvider interface {
	LLMProvider

	// ChatStream streams text chunks to tokenCallback as they arrive and
	// returns the complete LLMResponse after the stream finishes. The
	// callback is called synchronously.
	ChatStream(ctx context.Context, messages []Message, tools []shuttle.Tool,
		tokenCallback TokenCallback) (*LLMResponse, error)
}

// SupportsStreaming reports whether provider implements StreamingLLMProvider.
func SupportsStreaming(provider LLMProvider) bool {
	_, ok := provider.(StreamingLLMProvider)
	return ok
}

// Session is the message history an agent sends to its provider.
// Thread-safe: All methods can be called concurrently.
type Session struct {
	mu sync.RWMutex

	ID string

	Messages []Message

	CreatedAt time.Time
	UpdatedAt time.Time

	Usage Usage
}

// NewSession creates an empty session.
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// AddMessage appends msg to the history.
func (s *Session) AddMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

// AddUsage accumulates token usage.
func (s *Session) AddUsage(u Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Usage.Add(u)
}

// GetMessages returns a copy of the history.
func (s *Session) GetMessages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := make([]Message, len(s.Messages))
	copy(messages, s.Messages)
	return messages
}

// MessageCount returns the number of messages in the session.
func (s *Session) MessageCount() int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int32(len(s.Messages))
}

// Reset drops every message.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Messages = nil
	s.UpdatedAt = time.Now()
}
