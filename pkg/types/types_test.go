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

package types

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/teradata-labs/chatdb/pkg/shuttle"
)

func TestSession_MessageCount(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     int32
	}{
		{
			name:     "empty session",
			messages: []Message{},
			want:     0,
		},
		{
			name: "single message",
			messages: []Message{
				{Role: "user", Content: "Hello"},
			},
			want: 1,
		},
		{
			name: "multiple messages with different roles",
			messages: []Message{
				{Role: "user", Content: "Hello"},
				{Role: "assistant", Content: "Hi there"},
				{Role: "tool", Content: "Tool result"},
			},
			want: 3,
		},
		{
			name: "many messages",
			messages: func() []Message {
				msgs := make([]Message, 100)
				for i := 0; i < 100; i++ {
					msgs[i] = Message{
						Role:    "user",
						Content: "Message",
					}
				}
				return msgs
			}(),
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &Session{
				ID:        "test_session",
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
				Messages:  tt.messages,
			}

			assert.Equal(t, tt.want, session.MessageCount())
		})
	}
}

func TestSession_MessageCount_ThreadSafe(t *testing.T) {
	session := &Session{
		ID:        "test_session",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  []Message{},
	}

	// Simulate concurrent reads and writes
	done := make(chan bool)

	// Writer goroutine - adds messages
	go func() {
		for i := 0; i < 100; i++ {
			msg := Message{
				Role:    "user",
				Content: "Test message",
			}
			session.AddMessage(msg)
			time.Sleep(time.Microsecond)
		}
		done <- true
	}()

	// Reader goroutines - read message count
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 50; j++ {
				_ = session.MessageCount()
				time.Sleep(time.Microsecond)
			}
		}()
	}

	// Wait for writer to complete
	<-done

	// Final count should be 100
	assert.Equal(t, int32(100), session.MessageCount())
}

func TestSession_GetMessagesIsACopy(t *testing.T) {
	session := NewSession("s")
	session.AddMessage(Message{Role: RoleUser, Content: "Hello"})

	msgs := session.GetMessages()
	msgs[0].Content = "changed"

	assert.Equal(t, "Hello", session.GetMessages()[0].Content)
	assert.False(t, session.GetMessages()[0].Timestamp.IsZero())

	session.Reset()
	assert.Zero(t, session.MessageCount())
}

func TestUsage_Add(t *testing.T) {
	var u Usage
	u.Add(Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15})
	u.Add(Usage{InputTokens: 1, OutputTokens: 1, TotalTokens: 2})
	assert.Equal(t, Usage{InputTokens: 11, OutputTokens: 6, TotalTokens: 17}, u)
}

type blockingProvider struct{}

func (blockingProvider) Chat(context.Context, []Message, []shuttle.Tool) (*LLMResponse, error) {
	return &LLMResponse{}, nil
}
func (blockingProvider) Name() string  { return "blocking" }
func (blockingProvider) Model() string { return "m" }

type streamingProvider struct{ blockingProvider }

func (streamingProvider) ChatStream(context.Context, []Message, []shuttle.Tool, TokenCallback) (*LLMResponse, error) {
	return &LLMResponse{}, nil
}

func TestSupportsStreaming(t *testing.T) {
	assert.False(t, SupportsStreaming(blockingProvider{}))
	assert.True(t, SupportsStreaming(streamingProvider{}))
}
