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

// Package redis stores conversations in Redis: one JSON record per key and
// a sorted set ordering conversations by creation time.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/storage"
)

// DefaultNamespace prefixes every key.
const DefaultNamespace = "chatdb"

// Store is a storage.Store over Redis.
type Store struct {
	client    *redis.Client
	namespace string
	logger    *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithNamespace replaces DefaultNamespace.
func WithNamespace(ns string) Option {
	return func(s *Store) {
		if ns != "" {
			s.namespace = ns
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open connects to the Redis server at url (redis:// or rediss://) and
// checks the connection.
func Open(ctx context.Context, url string, opts ...Option) (*Store, error) {
	redisOpt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	s := New(redis.NewClient(redisOpt), opts...)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.client.Ping(pingCtx).Err(); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	s.logger.Info("conversation store connected", zap.String("addr", redisOpt.Addr), zap.Int("db", redisOpt.DB))
	return s, nil
}

// New wraps an existing client. Closing the store closes the client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, namespace: DefaultNamespace, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) recordKey(id string) string {
	return fmt.Sprintf("%s:conversation:%s", s.namespace, id)
}

func (s *Store) indexKey() string {
	return s.namespace + ":conversations"
}

// Save stores conv. The creation score of an existing conversation is kept.
func (s *Store) Save(ctx context.Context, conv *conversation.Conversation) error {
	data, err := storage.Encode(conv)
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.recordKey(conv.ID), data, 0)
		pipe.ZAddNX(ctx, s.indexKey(), &redis.Z{
			Score:  float64(time.Now().UnixNano()),
			Member: conv.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save conversation '%s': %w", conv.ID, err)
	}
	s.logger.Debug("conversation saved", zap.String("conversation", conv.ID))
	return nil
}

// Load returns the conversation with id.
func (s *Store) Load(ctx context.Context, id string) (*conversation.Conversation, error) {
	data, err := s.client.Get(ctx, s.recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("conversation '%s': %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation '%s': %w", id, err)
	}
	return storage.Decode(data)
}

// LoadAll returns every conversation in creation order. Index entries
// whose record has vanished are skipped.
func (s *Store) LoadAll(ctx context.Context) ([]*conversation.Conversation, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.recordKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}

	out := make([]*conversation.Conversation, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			s.logger.Warn("conversation index entry without record", zap.String("conversation", ids[i]))
			continue
		}
		conv, err := storage.Decode([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

// List returns conversation summaries in creation order.
func (s *Store) List(ctx context.Context) ([]storage.Summary, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]storage.Summary, len(all))
	for i, conv := range all {
		out[i] = storage.Summarize(conv)
	}
	return out, nil
}

// Delete removes the conversation with id.
func (s *Store) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, s.recordKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete conversation '%s': %w", id, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("conversation '%s': %w", id, storage.ErrNotFound)
	}
	return nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ storage.Store = (*Store)(nil)
