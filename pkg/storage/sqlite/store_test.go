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
package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/fabric"
	"github.com/teradata-labs/chatdb/pkg/storage"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conversations.db")
	s, err := Open(context.Background(), path, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func sampleConversation(id string) *conversation.Conversation {
	c := conversation.New(id, "gpt-4.1", []string{"sales", "hr"})
	c.AddMessage("assistant", "How can I help you today?", nil)
	c.AddMessage("user", "headcount?", nil)
	c.AddMessage("assistant", "12", []conversation.QueryRecord{
		{Database: "hr", Query: "SELECT COUNT(*) FROM staff", Rows: []fabric.Row{{float64(12)}}},
	})
	return c
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	conv := sampleConversation("Headcount")
	require.NoError(t, s.Save(ctx, conv))

	got, err := s.Load(ctx, "Headcount")
	require.NoError(t, err)
	assert.Equal(t, conv.Messages, got.Messages)
	assert.Equal(t, conv.DatabaseIDs, got.DatabaseIDs)
	assert.NotEqual(t, conv.Version, got.Version)

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	conv := sampleConversation("A")
	require.NoError(t, s.Save(ctx, conv))
	require.NoError(t, s.Save(ctx, sampleConversation("B")))

	conv.AddMessage("user", "and now?", nil)
	require.NoError(t, s.Save(ctx, conv))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID, "creation order kept on update")
	assert.Equal(t, 4, list[0].Messages)
	assert.Equal(t, []string{"sales", "hr"}, list[0].DatabaseIDs)

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "B", all[1].ID)
}

func TestStore_QueryLog(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	conv := sampleConversation("Headcount")
	require.NoError(t, s.Save(ctx, conv))
	require.NoError(t, s.Save(ctx, conv))

	log, err := s.QueryLog(ctx, "Headcount")
	require.NoError(t, err)
	assert.Equal(t, []LoggedQuery{{MessageIndex: 2, Database: "hr", Query: "SELECT COUNT(*) FROM staff", RowCount: 1}}, log)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Save(ctx, sampleConversation("A")))

	require.NoError(t, s.Delete(ctx, "A"))
	assert.ErrorIs(t, s.Delete(ctx, "A"), storage.ErrNotFound)

	log, err := s.QueryLog(ctx, "A")
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestStore_Reopen(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t)
	require.NoError(t, s.Save(ctx, sampleConversation("A")))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Load(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 3)
}

func TestStore_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, "", nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, sampleConversation("A")))
	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)
	require.NoError(t, s.Save(ctx, sampleConversation("A")))

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, s.Snapshot(ctx, dest))
	require.NoError(t, VerifySnapshot(ctx, dest))

	copied, err := Open(ctx, dest, nil)
	require.NoError(t, err)
	defer copied.Close()
	_, err = copied.Load(ctx, "A")
	assert.NoError(t, err)
}

func TestStore_SnapshotKeepsExistingFile(t *testing.T) {
	ctx := context.Background()
	s, _ := newStore(t)

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, os.WriteFile(dest, []byte("keep"), 0o600))

	err := s.Snapshot(ctx, dest)
	require.ErrorIs(t, err, os.ErrExist)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(data))
}
