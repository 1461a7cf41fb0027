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
	"encoding/base64"
	"fmt"

	"github.com/teradata-labs/chatdb/pkg/settings"
)

// SettingsFileName is the suggested file name of a settings backup.
const SettingsFileName = "chatdb_settings.json"

// recordVersion is the current backup format.
const recordVersion = 1

// verifierText is sealed into every settings record so a wrong password is
// detected even when no secret is set.
const verifierText = "chatdb"

// SettingsRecord is an exported settings snapshot. Database URIs, API keys
// and Pinecone keys are encrypted.
type SettingsRecord struct {
	Version             int                      `json:"version"`
	UseDefaultKey       bool                     `json:"use_default_key"`
	Salt                string                   `json:"salt"`
	Verifier            string                   `json:"verifier"`
	OpenAIKey           string                   `json:"openai_key,omitempty"`
	AnthropicKey        string                   `json:"anthropic_key,omitempty"`
	Databases           []settings.DatabaseProps `json:"databases"`
	VectorStores        []settings.VectorStore   `json:"vector_stores"`
	CurrentConversation string                   `json:"current_conversation,omitempty"`
}

// BackupSettings exports s, encrypting secrets with password, or with
// DefaultPassword when password is empty. s is not modified.
func BackupSettings(s *settings.Settings, password string) (*SettingsRecord, error) {
	salt, err := newSalt()
	if err != nil {
		return nil, err
	}
	c, err := newSealer(password, salt)
	if err != nil {
		return nil, err
	}

	snapshot := s.Clone()
	rec := &SettingsRecord{
		Version:             recordVersion,
		UseDefaultKey:       password == "",
		Salt:                base64.StdEncoding.EncodeToString(salt),
		Verifier:            verifierText,
		OpenAIKey:           snapshot.OpenAIKey,
		AnthropicKey:        snapshot.AnthropicKey,
		Databases:           snapshot.Databases,
		VectorStores:        snapshot.VectorStores,
		CurrentConversation: snapshot.CurrentConversation,
	}

	var sealErr error
	seal := func(dst *string) {
		if sealErr == nil {
			*dst, sealErr = c.seal(*dst)
		}
	}
	seal(&rec.Verifier)
	seal(&rec.OpenAIKey)
	seal(&rec.AnthropicKey)
	for i := range rec.Databases {
		seal(&rec.Databases[i].URI)
	}
	for i := range rec.VectorStores {
		if p := rec.VectorStores[i].Pinecone; p != nil {
			seal(&p.APIKey)
		}
	}
	if sealErr != nil {
		return nil, sealErr
	}
	return rec, nil
}

// RestoreSettings decrypts rec. A wrong password yields ErrDecryption. The
// password is ignored for records made with the default key.
func RestoreSettings(rec *SettingsRecord, password string) (*settings.Settings, error) {
	if rec.Version > recordVersion {
		return nil, fmt.Errorf("unsupported settings backup version %d", rec.Version)
	}
	if rec.UseDefaultKey {
		password = ""
	}
	salt, err := base64.StdEncoding.DecodeString(rec.Salt)
	if err != nil || len(salt) == 0 {
		return nil, fmt.Errorf("invalid settings backup: bad salt")
	}
	c, err := newSealer(password, salt)
	if err != nil {
		return nil, err
	}

	check, err := c.open(rec.Verifier)
	if err != nil {
		return nil, err
	}
	if check != verifierText {
		return nil, ErrDecryption
	}

	out := (&settings.Settings{
		Databases:           rec.Databases,
		VectorStores:        rec.VectorStores,
		CurrentConversation: rec.CurrentConversation,
	}).Clone()

	if out.OpenAIKey, err = c.open(rec.OpenAIKey); err != nil {
		return nil, err
	}
	if out.AnthropicKey, err = c.open(rec.AnthropicKey); err != nil {
		return nil, err
	}
	for i := range out.Databases {
		if out.Databases[i].URI, err = c.open(out.Databases[i].URI); err != nil {
			return nil, fmt.Errorf("database '%s': %w", out.Databases[i].ID, err)
		}
	}
	for i := range out.VectorStores {
		if p := out.VectorStores[i].Pinecone; p != nil {
			if p.APIKey, err = c.open(p.APIKey); err != nil {
				return nil, fmt.Errorf("vector store '%s': %w", out.VectorStores[i].ID, err)
			}
		}
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings backup: %w", err)
	}
	return out, nil
}

// Encrypted reports whether rec needs the user's password.
func (rec *SettingsRecord) Encrypted() bool {
	return !rec.UseDefaultKey
}
