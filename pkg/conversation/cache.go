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
package conversation

import (
	"io"
	"sync"

	"go.uber.org/zap"
)

// Entry is an agent built for one version of a conversation.
type Entry struct {
	Agent   Chatter
	Tracker *QueryTracker
	// Closer releases resources held by the entry, such as a registry view.
	Closer io.Closer
}

func (e *Entry) close() error {
	if e == nil || e.Closer == nil {
		return nil
	}
	return e.Closer.Close()
}

// BuildFunc creates the entry for a conversation.
type BuildFunc func(conv *Conversation) (*Entry, error)

type cached struct {
	version uint64
	entry   *Entry
}

// AgentCache memoizes agents by conversation id and version. Touching a
// conversation makes its cached agent stale.
type AgentCache struct {
	mu      sync.Mutex
	entries map[string]cached
	logger  *zap.Logger
}

// NewAgentCache creates an empty cache. A nil logger disables logging.
func NewAgentCache(logger *zap.Logger) *AgentCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AgentCache{entries: make(map[string]cached), logger: logger}
}

// Get returns the entry cached for conv's current version.
func (c *AgentCache) Get(conv *Conversation) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[conv.ID]
	if !ok || e.version != conv.Version {
		return nil, false
	}
	return e.entry, true
}

// Put caches entry for conv's current version, releasing any entry cached
// for an older version.
func (c *AgentCache) Put(conv *Conversation, entry *Entry) {
	c.mu.Lock()
	old, had := c.entries[conv.ID]
	c.entries[conv.ID] = cached{version: conv.Version, entry: entry}
	c.mu.Unlock()

	if had && old.entry != entry {
		c.release(conv.ID, old.entry)
	}
}

// Rekey moves the entry cached for version previous to conv's current
// version. It reports false when that entry was invalidated or replaced in
// the meantime.
func (c *AgentCache) Rekey(conv *Conversation, previous uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[conv.ID]
	if !ok || e.version != previous {
		return false
	}
	c.entries[conv.ID] = cached{version: conv.Version, entry: e.entry}
	return true
}

// GetOrBuild returns the cached entry or builds and caches a new one.
func (c *AgentCache) GetOrBuild(conv *Conversation, build BuildFunc) (*Entry, error) {
	if e, ok := c.Get(conv); ok {
		return e, nil
	}
	entry, err := build(conv)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("agent created", zap.String("conversation", conv.ID), zap.Uint64("version", conv.Version))
	c.Put(conv, entry)
	return entry, nil
}

// Invalidate drops the entry cached for a conversation id.
func (c *AgentCache) Invalidate(id string) {
	c.mu.Lock()
	old, had := c.entries[id]
	delete(c.entries, id)
	c.mu.Unlock()

	if had {
		c.release(id, old.entry)
	}
}

// Clear drops every entry.
func (c *AgentCache) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[string]cached)
	c.mu.Unlock()

	for id, e := range entries {
		c.release(id, e.entry)
	}
}

// Len returns the number of cached entries.
func (c *AgentCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *AgentCache) release(id string, e *Entry) {
	if err := e.close(); err != nil {
		c.logger.Warn("failed to release agent", zap.String("conversation", id), zap.Error(err))
	}
}
