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
package backup

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"slices"
	"time"

	"github.com/teradata-labs/chatdb/pkg/conversation"
)

var whitespace = regexp.MustCompile(`\s+`)

// ConversationRecord is an exported conversation.
type ConversationRecord struct {
	Version       int                    `json:"version"`
	ID            string                 `json:"id"`
	Model         string                 `json:"model"`
	DatabaseIDs   []string               `json:"database_ids"`
	VectorStoreID string                 `json:"vector_store_id,omitempty"`
	Messages      []conversation.Message `json:"messages"`
	LastUpdate    time.Time              `json:"last_update"`
}

// ConversationFileName is the suggested file name for a conversation
// backup: chatdb_<title>.json with whitespace runs replaced by "_".
func ConversationFileName(title string) string {
	return "chatdb_" + whitespace.ReplaceAllString(title, "_") + ".json"
}

// BackupConversation exports conv.
func BackupConversation(conv *conversation.Conversation) *ConversationRecord {
	return &ConversationRecord{
		Version:       recordVersion,
		ID:            conv.ID,
		Model:         conv.Model,
		DatabaseIDs:   slices.Clone(conv.DatabaseIDs),
		VectorStoreID: conv.VectorStoreID,
		Messages:      slices.Clone(conv.Messages),
		LastUpdate:    conv.LastUpdate,
	}
}

// RestoreConversation rebuilds a conversation from rec. The conversation
// gets a fresh timestamp and version, so no cached agent is reused.
func RestoreConversation(rec *ConversationRecord) (*conversation.Conversation, error) {
	if rec.Version > recordVersion {
		return nil, fmt.Errorf("unsupported conversation backup version %d", rec.Version)
	}
	if rec.ID == "" {
		return nil, fmt.Errorf("invalid conversation backup: missing id")
	}
	conv := conversation.New(rec.ID, rec.Model, rec.DatabaseIDs)
	conv.Messages = slices.Clone(rec.Messages)
	conv.VectorStoreID = rec.VectorStoreID
	return conv, nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ReadSettingsRecord decodes a settings backup.
func ReadSettingsRecord(r io.Reader) (*SettingsRecord, error) {
	var rec SettingsRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode settings backup: %w", err)
	}
	return &rec, nil
}

// ReadConversationRecord decodes a conversation backup.
func ReadConversationRecord(r io.Reader) (*ConversationRecord, error) {
	var rec ConversationRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode conversation backup: %w", err)
	}
	return &rec, nil
}
