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

// Package storage persists conversations between sessions.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/teradata-labs/chatdb/pkg/conversation"
)

// ErrNotFound is returned when a conversation id is not stored.
var ErrNotFound = conversation.ErrConversationNotFound

// ErrUnsupported is returned for an operation the configured store cannot
// perform.
var ErrUnsupported = errors.New("operation not supported by this store")

// Snapshotter is implemented by stores that can write a consistent copy of
// themselves to a file.
type Snapshotter interface {
	Snapshot(ctx context.Context, dest string) error
}

// Summary describes a stored conversation without its messages.
type Summary struct {
	ID          string
	Model       string
	DatabaseIDs []string
	Messages    int
	UpdatedAt   time.Time
}

// Store persists conversations keyed by their title.
type Store interface {
	// Save inserts or replaces a conversation.
	Save(ctx context.Context, conv *conversation.Conversation) error
	// Load returns the conversation with id, or ErrNotFound. Loaded
	// conversations get a fresh version.
	Load(ctx context.Context, id string) (*conversation.Conversation, error)
	// LoadAll returns every conversation in creation order.
	LoadAll(ctx context.Context) ([]*conversation.Conversation, error)
	// List returns summaries in creation order.
	List(ctx context.Context) ([]Summary, error)
	// Delete removes the conversation with id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	Close() error
}
