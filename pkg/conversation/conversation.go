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

// Package conversation holds chat conversations, tracks the SQL each turn
// runs and drives the retry loop that steers the agent after schema errors.
package conversation

import (
	"errors"
	"slices"
	"sync/atomic"
	"time"

	"github.com/teradata-labs/chatdb/pkg/fabric"
	"github.com/teradata-labs/chatdb/pkg/types"
)

var (
	// ErrConversationExists is returned when a title is already taken.
	ErrConversationExists = errors.New("conversation title has to be unique")
	// ErrConversationNotFound is returned for unknown conversation ids.
	ErrConversationNotFound = errors.New("conversation not found")
)

// versions hands out process-unique conversation versions.
var versions atomic.Uint64

func nextVersion() uint64 { return versions.Add(1) }

// QueryRecord is one successfully executed statement.
type QueryRecord struct {
	Database string       `json:"database"`
	Query    string       `json:"query"`
	Rows     []fabric.Row `json:"rows"`
	// Truncated reports that Rows is a prefix of the statement's result.
	Truncated bool `json:"truncated,omitempty"`
}

// Message is one entry of a conversation transcript.
type Message struct {
	Role    string        `json:"role"`
	Content string        `json:"content"`
	Queries []QueryRecord `json:"queries,omitempty"`
}

// Conversation is a titled chat over a set of databases. The title is its
// identity.
type Conversation struct {
	ID          string    `json:"id"`
	Model       string    `json:"model"`
	DatabaseIDs []string  `json:"database_ids"`
	Messages    []Message `json:"messages"`
	LastUpdate  time.Time `json:"last_update"`

	// VectorStoreID names the vector store configured for the conversation,
	// empty when there is none.
	VectorStoreID string `json:"vector_store_id,omitempty"`

	// Version changes on every Touch and keys the agent cache. It is never
	// persisted.
	Version uint64 `json:"-"`
}

// New creates a conversation with a fresh timestamp and version.
func New(id, model string, databaseIDs []string) *Conversation {
	c := &Conversation{
		ID:          id,
		Model:       model,
		DatabaseIDs: slices.Clone(databaseIDs),
	}
	c.Touch()
	return c
}

// Touch stamps the conversation with the current time and a new version,
// which invalidates any agent cached for it.
func (c *Conversation) Touch() {
	c.LastUpdate = time.Now()
	c.Version = nextVersion()
}

// AddMessage appends a message. Queries are copied.
func (c *Conversation) AddMessage(role, content string, queries []QueryRecord) {
	c.Messages = append(c.Messages, Message{
		Role:    role,
		Content: content,
		Queries: slices.Clone(queries),
	})
}

// SetDatabases replaces the referenced databases and touches the
// conversation.
func (c *Conversation) SetDatabases(ids []string) {
	c.DatabaseIDs = slices.Clone(ids)
	c.Touch()
}

// SetModel replaces the model and touches the conversation.
func (c *Conversation) SetModel(model string) {
	c.Model = model
	c.Touch()
}

// SetVectorStore replaces the vector store and touches the conversation.
// An empty id clears it.
func (c *Conversation) SetVectorStore(id string) {
	c.VectorStoreID = id
	c.Touch()
}

// LastMessage returns the most recent message, if any.
func (c *Conversation) LastMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// DatabaseLookup reports whether a database name is registered.
type DatabaseLookup interface {
	Has(name string) bool
}

// MissingDatabases returns the referenced databases that registry lacks, in
// reference order.
func (c *Conversation) MissingDatabases(registry DatabaseLookup) []string {
	var missing []string
	for _, id := range c.DatabaseIDs {
		if !registry.Has(id) {
			missing = append(missing, id)
		}
	}
	return missing
}

// Valid reports whether every referenced database is registered. Invalid
// conversations are left as they are.
func (c *Conversation) Valid(registry DatabaseLookup) bool {
	return len(c.MissingDatabases(registry)) == 0
}

// Transcript converts the conversation to agent messages, used to seed a
// fresh agent's memory. Messages before the first user message, such as the
// greeting, are left out.
func (c *Conversation) Transcript() []types.Message {
	start := slices.IndexFunc(c.Messages, func(m Message) bool { return m.Role == types.RoleUser })
	if start < 0 {
		return nil
	}
	out := make([]types.Message, 0, len(c.Messages)-start)
	for _, m := range c.Messages[start:] {
		out = append(out, types.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
