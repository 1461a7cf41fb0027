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
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/teradata-labs/chatdb/pkg/backup"
	"github.com/teradata-labs/chatdb/pkg/conversation"
)

// Encode serializes conv in the conversation backup format.
func Encode(conv *conversation.Conversation) ([]byte, error) {
	data, err := json.Marshal(backup.BackupConversation(conv))
	if err != nil {
		return nil, fmt.Errorf("failed to encode conversation '%s': %w", conv.ID, err)
	}
	return data, nil
}

// Decode parses a record written by Encode.
func Decode(data []byte) (*conversation.Conversation, error) {
	rec, err := backup.ReadConversationRecord(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	conv, err := backup.RestoreConversation(rec)
	if err != nil {
		return nil, err
	}
	// keep the stored timestamp; the version is still fresh
	conv.LastUpdate = rec.LastUpdate
	return conv, nil
}

// Summarize builds the summary of conv.
func Summarize(conv *conversation.Conversation) Summary {
	return Summary{
		ID:          conv.ID,
		Model:       conv.Model,
		DatabaseIDs: conv.DatabaseIDs,
		Messages:    len(conv.Messages),
		UpdatedAt:   conv.LastUpdate,
	}
}
