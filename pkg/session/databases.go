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
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/internal/ordered"
	"github.com/teradata-labs/chatdb/pkg/settings"
)

// SaveDatabase adds or reconfigures a database. A non-empty previousID
// renames that database to db.ID. The connection is opened before the
// settings change, so a bad URI leaves both untouched.
func (s *State) SaveDatabase(ctx context.Context, previousID string, db settings.DatabaseProps) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings.Clone()
	if err := next.SaveDatabase(previousID, db); err != nil {
		return err
	}

	if err := s.registry.AddConnection(ctx, db.ID, db.URI); err != nil {
		return err
	}
	if previousID != "" && previousID != db.ID && s.registry.Has(previousID) {
		if err := s.registry.Remove(previousID); err != nil {
			return err
		}
	}
	if previousID != "" && previousID != db.ID {
		s.invalidateReferencing(previousID)
	}
	s.invalidateReferencing(db.ID)
	s.settings = next
	s.logger.Info("database saved", zap.String("database", db.ID), zap.String("previous", previousID))
	return nil
}

// RemoveDatabase closes a database and drops it from the settings.
// Conversations that reference it become invalid.
func (s *State) RemoveDatabase(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.settings.RemoveDatabase(id); err != nil {
		return err
	}
	if s.registry.Has(id) {
		if err := s.registry.Remove(id); err != nil {
			return fmt.Errorf("close database '%s': %w", id, err)
		}
	}
	s.invalidateReferencing(id)
	s.logger.Info("database removed", zap.String("database", id))
	return nil
}

// ApplySettings replaces the settings, for example after a restore, and
// reconnects every database. The current selection is kept when the new
// settings do not name one.
func (s *State) ApplySettings(ctx context.Context, st *settings.Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.cache.Clear()
	for _, name := range s.registry.ListDatabases() {
		if err := s.registry.Remove(name); err != nil {
			s.logger.Warn("close database", zap.String("database", name), zap.Error(err))
		}
	}
	s.settings = st.Clone()
	if st.CurrentConversation != "" && ordered.Has(s.conversations, st.CurrentConversation) {
		s.current = st.CurrentConversation
		s.retry = nil
	}
	s.mu.Unlock()

	return s.Connect(ctx)
}

// invalidateReferencing drops cached agents whose views hold the database.
func (s *State) invalidateReferencing(id string) {
	for pair := s.conversations.Oldest(); pair != nil; pair = pair.Next() {
		if slices.Contains(pair.Value.DatabaseIDs, id) {
			s.cache.Invalidate(pair.Key)
		}
	}
}

// SaveVectorStore adds or reconfigures a vector store.
func (s *State) SaveVectorStore(previousID string, v settings.VectorStore) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.SaveVectorStore(previousID, v)
}

// RemoveVectorStore drops a vector store from the settings. Conversations
// linked to it become invalid.
func (s *State) RemoveVectorStore(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.settings.RemoveVectorStore(id); err != nil {
		return err
	}
	linked := 0
	for pair := s.conversations.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.VectorStoreID == id {
			s.cache.Invalidate(pair.Key)
			linked++
		}
	}
	s.logger.Info("vector store removed", zap.String("vector_store", id), zap.Int("conversations", linked))
	return nil
}
