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
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/internal/ordered"
	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/fabric"
	"github.com/teradata-labs/chatdb/pkg/settings"
	"github.com/teradata-labs/chatdb/pkg/storage"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// LoadConversations reads every stored conversation into the session.
// Conversations already in memory are replaced.
func (s *State) LoadConversations(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	convs, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conv := range convs {
		s.conversations.Set(conv.ID, conv)
		s.cache.Invalidate(conv.ID)
	}
	if s.current != "" && !ordered.Has(s.conversations, s.current) {
		s.current = ""
	}
	s.logger.Debug("conversations loaded", zap.Int("count", len(convs)))
	return nil
}

// NewConversation creates a conversation over the given databases, opens it
// with the greeting, selects it and persists it. Titles are unique.
func (s *State) NewConversation(ctx context.Context, title, model string, databaseIDs []string) (*conversation.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fabric.InvalidArgument("conversation title is empty")
	}

	s.mu.Lock()
	if ordered.Has(s.conversations, title) {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: '%s'", conversation.ErrConversationExists, title)
	}
	for _, id := range databaseIDs {
		if !s.registry.Has(id) {
			s.mu.Unlock()
			return nil, fabric.NoSuchDatabase(id)
		}
	}
	conv := conversation.New(title, model, databaseIDs)
	conv.AddMessage(types.RoleAssistant, Greeting, nil)
	s.conversations.Set(title, conv)
	s.current = title
	s.retry = nil
	s.mu.Unlock()

	s.logger.Info("conversation created",
		zap.String("conversation", title),
		zap.String("model", model),
		zap.Strings("databases", databaseIDs))
	return conv, s.persist(ctx, conv)
}

// Conversation returns the conversation titled id.
func (s *State) Conversation(id string) (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: '%s'", conversation.ErrConversationNotFound, id)
	}
	return conv, nil
}

// Conversations returns all conversations in creation order.
func (s *State) Conversations() []*conversation.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ordered.Values(s.conversations)
}

// Select makes id the current conversation. Selecting another conversation
// drops a pending retry.
func (s *State) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ordered.Has(s.conversations, id) {
		return fmt.Errorf("%w: '%s'", conversation.ErrConversationNotFound, id)
	}
	if s.current != id {
		s.retry = nil
	}
	s.current = id
	return nil
}

// Current returns the selected conversation.
func (s *State) Current() (*conversation.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentLocked()
}

func (s *State) currentLocked() (*conversation.Conversation, error) {
	if s.current == "" {
		return nil, ErrNoConversation
	}
	conv, ok := s.conversations.Get(s.current)
	if !ok {
		return nil, ErrNoConversation
	}
	return conv, nil
}

// Validate reports whether every database the conversation references is
// open and its vector store, if any, is configured. The error is an
// *InvalidConversationError.
func (s *State) Validate(id string) error {
	conv, err := s.Conversation(id)
	if err != nil {
		return err
	}
	return s.validate(conv)
}

func (s *State) validate(conv *conversation.Conversation) error {
	invalid := &InvalidConversationError{ID: conv.ID, Missing: conv.MissingDatabases(s.registry)}
	if conv.VectorStoreID != "" {
		s.mu.Lock()
		_, ok := s.settings.VectorStore(conv.VectorStoreID)
		s.mu.Unlock()
		if !ok {
			invalid.VectorStore = conv.VectorStoreID
		}
	}
	if len(invalid.Missing) > 0 || invalid.VectorStore != "" {
		return invalid
	}
	return nil
}

// SetVectorStore links the conversation to a configured vector store. An
// empty storeID unlinks it.
func (s *State) SetVectorStore(ctx context.Context, id, storeID string) error {
	s.mu.Lock()
	conv, ok := s.conversations.Get(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: '%s'", conversation.ErrConversationNotFound, id)
	}
	if s.busy[id] {
		s.mu.Unlock()
		return ErrTurnInProgress
	}
	if storeID != "" {
		if _, ok := s.settings.VectorStore(storeID); !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: vector store '%s'", settings.ErrNotFound, storeID)
		}
	}
	conv.SetVectorStore(storeID)
	s.cache.Invalidate(id)
	s.mu.Unlock()

	s.logger.Info("conversation vector store set",
		zap.String("conversation", id),
		zap.String("vector_store", storeID))
	return s.persist(ctx, conv)
}

// UpdateConversation changes the model or database set of a conversation.
// Empty model or nil databases leave the field unchanged.
func (s *State) UpdateConversation(ctx context.Context, id, model string, databaseIDs []string) error {
	s.mu.Lock()
	conv, ok := s.conversations.Get(id)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: '%s'", conversation.ErrConversationNotFound, id)
	}
	if s.busy[id] {
		s.mu.Unlock()
		return ErrTurnInProgress
	}
	for _, db := range databaseIDs {
		if !s.registry.Has(db) {
			s.mu.Unlock()
			return fabric.NoSuchDatabase(db)
		}
	}
	if model != "" {
		conv.SetModel(model)
	}
	if databaseIDs != nil {
		conv.SetDatabases(databaseIDs)
	}
	s.cache.Invalidate(id)
	s.mu.Unlock()
	return s.persist(ctx, conv)
}

// DeleteConversation removes a conversation from the session and the store.
func (s *State) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	if !ordered.Has(s.conversations, id) {
		s.mu.Unlock()
		return fmt.Errorf("%w: '%s'", conversation.ErrConversationNotFound, id)
	}
	if s.busy[id] {
		s.mu.Unlock()
		return ErrTurnInProgress
	}
	s.conversations.Delete(id)
	s.cache.Invalidate(id)
	if s.current == id {
		s.current = ""
		s.retry = nil
	}
	s.mu.Unlock()

	if s.store == nil {
		return nil
	}
	if err := s.store.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete conversation '%s': %w", id, err)
	}
	return nil
}

// ImportConversation adds a restored conversation, replacing one with the
// same title, and selects it.
func (s *State) ImportConversation(ctx context.Context, conv *conversation.Conversation) error {
	s.mu.Lock()
	if s.busy[conv.ID] {
		s.mu.Unlock()
		return ErrTurnInProgress
	}
	s.conversations.Set(conv.ID, conv)
	s.cache.Invalidate(conv.ID)
	s.current = conv.ID
	s.retry = nil
	s.mu.Unlock()

	if err := s.validate(conv); err != nil {
		s.logger.Warn("imported conversation is invalid", zap.String("conversation", conv.ID), zap.Error(err))
	}
	return s.persist(ctx, conv)
}

func (s *State) persist(ctx context.Context, conv *conversation.Conversation) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, conv); err != nil {
		return fmt.Errorf("save conversation '%s': %w", conv.ID, err)
	}
	return nil
}
