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
package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveDatabase_AddAndRename(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveDatabase("", DatabaseProps{ID: "sales", URI: "sqlite:///sales.db"}))
	require.NoError(t, s.SaveDatabase("", DatabaseProps{ID: "hr", URI: "sqlite:///hr.db"}))
	assert.Equal(t, []string{"sales", "hr"}, s.DatabaseIDs())

	require.NoError(t, s.SaveDatabase("sales", DatabaseProps{ID: "revenue", URI: "sqlite:///sales.db"}))
	assert.Equal(t, []string{"revenue", "hr"}, s.DatabaseIDs())
	_, ok := s.Database("sales")
	assert.False(t, ok)

	require.NoError(t, s.SaveDatabase("hr", DatabaseProps{ID: "hr", URI: "postgresql://db/hr"}))
	db, ok := s.Database("hr")
	require.True(t, ok)
	assert.Equal(t, "postgresql://db/hr", db.URI)

	err := s.SaveDatabase("hr", DatabaseProps{ID: "revenue", URI: "x"})
	assert.ErrorIs(t, err, ErrExists)

	assert.Error(t, s.SaveDatabase("", DatabaseProps{ID: " ", URI: "x"}))
	assert.Error(t, s.SaveDatabase("", DatabaseProps{ID: "x"}))
}

func TestRemoveDatabase(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveDatabase("", DatabaseProps{ID: "sales", URI: "sqlite://"}))
	require.NoError(t, s.RemoveDatabase("sales"))
	assert.ErrorIs(t, s.RemoveDatabase("sales"), ErrNotFound)
	assert.Empty(t, s.DatabaseIDs())
}

func TestSaveVectorStore(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveVectorStore("", InMemoryVectorStore("local")))
	pc := PineconeVectorStore("cloud", PineconeProps{APIKey: "k", Environment: "us-east1-gcp", IndexName: "tables"})
	require.NoError(t, s.SaveVectorStore("", pc))

	err := s.SaveVectorStore("local", PineconeVectorStore("local", PineconeProps{IndexName: "x"}))
	assert.ErrorContains(t, err, "cannot change")

	require.NoError(t, s.SaveVectorStore("local", InMemoryVectorStore("scratch")))
	_, ok := s.VectorStore("scratch")
	assert.True(t, ok)

	assert.Error(t, s.SaveVectorStore("", VectorStore{ID: "bad", Kind: VectorStorePinecone}))
	assert.Error(t, s.SaveVectorStore("", VectorStore{ID: "bad", Kind: VectorStoreInMemory, Pinecone: &PineconeProps{}}))
	require.NoError(t, s.RemoveVectorStore("scratch"))
	assert.ErrorIs(t, s.RemoveVectorStore("scratch"), ErrNotFound)
}

func TestVectorStoreProps(t *testing.T) {
	assert.Equal(t, []Prop{{"Type", "In-memory"}}, InMemoryVectorStore("a").Props())

	pc := PineconeVectorStore("b", PineconeProps{APIKey: "k", Environment: "env", IndexName: "idx"})
	assert.Equal(t, []Prop{
		{"Type", "Pinecone"},
		{"API key", "k"},
		{"Environment", "env"},
		{"Index name", "idx"},
	}, pc.Props())

	assert.Equal(t, "Pinecone DB", VectorStorePinecone.String())
	kind, err := ParseVectorStoreKind("pinecone")
	require.NoError(t, err)
	assert.Equal(t, VectorStorePinecone, kind)
	_, err = ParseVectorStoreKind("faiss")
	assert.Error(t, err)
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	missing, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, missing.Databases)

	s := New()
	s.OpenAIKey = "sk-test"
	s.CurrentConversation = "Quarterly revenue"
	require.NoError(t, s.SaveDatabase("", DatabaseProps{ID: "sales", URI: "sqlite:///sales.db"}))
	require.NoError(t, s.SaveVectorStore("", PineconeVectorStore("cloud", PineconeProps{IndexName: "tables"})))
	require.NoError(t, s.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "type: pinecone")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestLoad_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("databases:\n  - id: a\n    uri: x\n  - id: a\n    uri: y\n"), 0o600))
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrExists)

	require.NoError(t, os.WriteFile(path, []byte("vector_stores:\n  - id: a\n    type: faiss\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestClone(t *testing.T) {
	s := New()
	require.NoError(t, s.SaveDatabase("", DatabaseProps{ID: "sales", URI: "sqlite://"}))
	require.NoError(t, s.SaveVectorStore("", PineconeVectorStore("cloud", PineconeProps{APIKey: "k", IndexName: "i"})))

	c := s.Clone()
	c.Databases[0].URI = "changed"
	c.VectorStores[0].Pinecone.APIKey = "changed"
	assert.Equal(t, "sqlite://", s.Databases[0].URI)
	assert.Equal(t, "k", s.VectorStores[0].Pinecone.APIKey)
}
