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
package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/storage"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := New(client, WithNamespace("test"), WithLogger(zaptest.NewLogger(t)))
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func sample(id string) *conversation.Conversation {
	c := conversation.New(id, "gpt-4.1", []string{"sales"})
	c.AddMessage("user", "total?", nil)
	c.AddMessage("assistant", "42", []conversation.QueryRecord{{Database: "sales", Query: "SELECT 42"}})
	return c
}

func TestStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	conv := sample("Revenue")
	require.NoError(t, s.Save(ctx, conv))
	assert.True(t, mr.Exists("test:conversation:Revenue"))

	got, err := s.Load(ctx, "Revenue")
	require.NoError(t, err)
	assert.Equal(t, conv.Messages, got.Messages)
	assert.Equal(t, conv.Model, got.Model)

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_OrderAndList(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	a := sample("A")
	require.NoError(t, s.Save(ctx, a))
	require.NoError(t, s.Save(ctx, sample("B")))
	a.AddMessage("user", "again", nil)
	require.NoError(t, s.Save(ctx, a))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].ID)
	assert.Equal(t, 3, list[0].Messages)
	assert.Equal(t, "B", list[1].ID)
}

func TestStore_SkipsDanglingIndex(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	require.NoError(t, s.Save(ctx, sample("A")))
	require.NoError(t, s.Save(ctx, sample("B")))
	mr.Del("test:conversation:A")

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "B", all[0].ID)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	require.NoError(t, s.Save(ctx, sample("A")))

	require.NoError(t, s.Delete(ctx, "A"))
	assert.False(t, mr.Exists("test:conversation:A"))
	assert.ErrorIs(t, s.Delete(ctx, "A"), storage.ErrNotFound)

	all, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := Open(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(context.Background(), "http://nope")
	assert.Error(t, err)
}
