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
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teradata-labs/chatdb/pkg/types"
)

// Memory is the message history of one conversation's agent. It is safe for
// concurrent use.
type Memory struct {
	mu           sync.RWMutex
	systemPrompt string
	session      *types.Session
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{session: types.NewSession(uuid.NewString())}
}

// SetSystemPrompt sets the prompt placed before every history sent to the
// provider.
func (m *Memory) SetSystemPrompt(prompt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.systemPrompt = prompt
}

// AddMessage appends msg, assigning an ID when it has none.
func (m *Memory) AddMessage(msg Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.session.AddMessage(msg)
}

// InjectSystemMessage appends a system message to the history. It is used
// to steer the model after a failed attempt.
func (m *Memory) InjectSystemMessage(content string) {
	m.AddMessage(Message{Role: types.RoleSystem, Content: content})
}

// Messages returns the history as sent to the provider, system prompt first.
func (m *Memory) Messages() []Message {
	m.mu.RLock()
	prompt := m.systemPrompt
	m.mu.RUnlock()

	history := m.session.GetMessages()
	if prompt == "" {
		return history
	}
	return append([]Message{{Role: types.RoleSystem, Content: prompt}}, history...)
}

// History returns the stored messages without the system prompt.
func (m *Memory) History() []Message {
	return m.session.GetMessages()
}

// Len returns the number of stored messages.
func (m *Memory) Len() int {
	return int(m.session.MessageCount())
}

// Reset clears the history but keeps the system prompt.
func (m *Memory) Reset() {
	m.session.Reset()
}
