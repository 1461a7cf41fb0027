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

// Package settings holds the user's databases, vector stores, provider keys
// and current conversation, persisted as YAML.
package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrExists is returned when an id is already taken.
	ErrExists = errors.New("already exists")
	// ErrNotFound is returned for unknown ids.
	ErrNotFound = errors.New("not found")
)

// DatabaseProps is a configured database connection.
type DatabaseProps struct {
	ID  string `yaml:"id" json:"id"`
	URI string `yaml:"uri" json:"uri"`
}

// Settings is the persisted user configuration. Databases and vector
// stores keep their configuration order.
type Settings struct {
	OpenAIKey           string          `yaml:"openai_api_key,omitempty" json:"openai_api_key,omitempty"`
	AnthropicKey        string          `yaml:"anthropic_api_key,omitempty" json:"anthropic_api_key,omitempty"`
	Databases           []DatabaseProps `yaml:"databases" json:"databases"`
	VectorStores        []VectorStore   `yaml:"vector_stores" json:"vector_stores"`
	CurrentConversation string          `yaml:"current_conversation,omitempty" json:"current_conversation,omitempty"`
}

// New returns empty settings.
func New() *Settings {
	return &Settings{}
}

// Clone returns a deep copy.
func (s *Settings) Clone() *Settings {
	c := *s
	c.Databases = slices.Clone(s.Databases)
	c.VectorStores = make([]VectorStore, len(s.VectorStores))
	for i, v := range s.VectorStores {
		if v.Pinecone != nil {
			p := *v.Pinecone
			v.Pinecone = &p
		}
		c.VectorStores[i] = v
	}
	return &c
}

// Database returns the database with id.
func (s *Settings) Database(id string) (DatabaseProps, bool) {
	i := s.databaseIndex(id)
	if i < 0 {
		return DatabaseProps{}, false
	}
	return s.Databases[i], true
}

// DatabaseIDs returns database ids in order.
func (s *Settings) DatabaseIDs() []string {
	ids := make([]string, len(s.Databases))
	for i, db := range s.Databases {
		ids[i] = db.ID
	}
	return ids
}

// SaveDatabase stores db. With a non-empty previousID the entry saved under
// previousID is replaced, which renames it when the ids differ. A renamed
// entry keeps its position; renaming onto another id fails with ErrExists.
func (s *Settings) SaveDatabase(previousID string, db DatabaseProps) error {
	db.ID = strings.TrimSpace(db.ID)
	if db.ID == "" {
		return fmt.Errorf("database id must not be empty")
	}
	if strings.TrimSpace(db.URI) == "" {
		return fmt.Errorf("database '%s': connection URI must not be empty", db.ID)
	}

	if previousID == "" {
		previousID = db.ID
	}
	at := s.databaseIndex(previousID)
	if previousID != db.ID && s.databaseIndex(db.ID) >= 0 {
		return fmt.Errorf("database '%s': %w", db.ID, ErrExists)
	}
	if at < 0 {
		s.Databases = append(s.Databases, db)
		return nil
	}
	s.Databases[at] = db
	return nil
}

// RemoveDatabase deletes the database with id.
func (s *Settings) RemoveDatabase(id string) error {
	i := s.databaseIndex(id)
	if i < 0 {
		return fmt.Errorf("database '%s': %w", id, ErrNotFound)
	}
	s.Databases = slices.Delete(s.Databases, i, i+1)
	return nil
}

// VectorStore returns the vector store with id.
func (s *Settings) VectorStore(id string) (VectorStore, bool) {
	i := s.vectorStoreIndex(id)
	if i < 0 {
		return VectorStore{}, false
	}
	return s.VectorStores[i], true
}

// SaveVectorStore stores v with the same rename semantics as SaveDatabase.
// The kind of an existing store cannot change.
func (s *Settings) SaveVectorStore(previousID string, v VectorStore) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if previousID == "" {
		previousID = v.ID
	}
	at := s.vectorStoreIndex(previousID)
	if previousID != v.ID && s.vectorStoreIndex(v.ID) >= 0 {
		return fmt.Errorf("vector store '%s': %w", v.ID, ErrExists)
	}
	if at < 0 {
		s.VectorStores = append(s.VectorStores, v)
		return nil
	}
	if s.VectorStores[at].Kind != v.Kind {
		return fmt.Errorf("vector store '%s': type cannot change from %s to %s", previousID, s.VectorStores[at].Kind, v.Kind)
	}
	s.VectorStores[at] = v
	return nil
}

// RemoveVectorStore deletes the vector store with id.
func (s *Settings) RemoveVectorStore(id string) error {
	i := s.vectorStoreIndex(id)
	if i < 0 {
		return fmt.Errorf("vector store '%s': %w", id, ErrNotFound)
	}
	s.VectorStores = slices.Delete(s.VectorStores, i, i+1)
	return nil
}

// Validate checks ids are unique and payloads consistent.
func (s *Settings) Validate() error {
	seen := make(map[string]bool, len(s.Databases))
	for _, db := range s.Databases {
		if db.ID == "" {
			return fmt.Errorf("database id must not be empty")
		}
		if seen[db.ID] {
			return fmt.Errorf("database '%s': %w", db.ID, ErrExists)
		}
		seen[db.ID] = true
	}
	seen = make(map[string]bool, len(s.VectorStores))
	for _, v := range s.VectorStores {
		if err := v.Validate(); err != nil {
			return err
		}
		if seen[v.ID] {
			return fmt.Errorf("vector store '%s': %w", v.ID, ErrExists)
		}
		seen[v.ID] = true
	}
	return nil
}

func (s *Settings) databaseIndex(id string) int {
	return slices.IndexFunc(s.Databases, func(db DatabaseProps) bool { return db.ID == id })
}

func (s *Settings) vectorStoreIndex(id string) int {
	return slices.IndexFunc(s.VectorStores, func(v VectorStore) bool { return v.ID == id })
}

// Load reads settings from path. A missing file yields empty settings.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	s := New()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to path, readable by the owner only.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
