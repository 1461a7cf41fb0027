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

// Package session holds the state of one chatdb user session: settings,
// open databases, conversations, the current selection and a pending
// retry.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/internal/ordered"
	"github.com/teradata-labs/chatdb/pkg/agent"
	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/database"
	"github.com/teradata-labs/chatdb/pkg/settings"
	"github.com/teradata-labs/chatdb/pkg/storage"
	"github.com/teradata-labs/chatdb/pkg/types"
)

// Greeting opens every new conversation.
const Greeting = "How can I help you today?"

// InvalidConversationMessage is shown for conversations whose databases are
// not configured.
const InvalidConversationMessage = "Could not load conversation due to missing parameters! Did you forget to restore the settings?"

// DefaultSystemPrompt steers the agent toward the database tools.
const DefaultSystemPrompt = `You are ChatDB, an assistant that answers questions about the user's SQL databases.
Use list_databases to find the available databases, list_tables and describe_tables to learn their schema, and load_data to run SQL.
Never guess table or column names: look them up first. Summarize query results in plain language.`

var (
	// ErrNoConversation is returned when no conversation is selected.
	ErrNoConversation = errors.New("no conversation selected")
	// ErrNoRetry is returned by Retry when the last turn did not fail.
	ErrNoRetry = errors.New("nothing to retry")
	// ErrTurnInProgress is returned when a conversation is already
	// answering a prompt.
	ErrTurnInProgress = errors.New("a prompt is already running for this conversation")
)

// InvalidConversationError reports databases, or a vector store, that a
// conversation references but the session does not have.
type InvalidConversationError struct {
	ID          string
	Missing     []string
	VectorStore string
}

func (e *InvalidConversationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing databases: "+strings.Join(e.Missing, ", "))
	}
	if e.VectorStore != "" {
		parts = append(parts, "missing vector store: "+e.VectorStore)
	}
	return fmt.Sprintf("conversation '%s' references %s", e.ID, strings.Join(parts, "; "))
}

// ProviderFactory creates the LLM provider for a model.
type ProviderFactory interface {
	CreateProvider(provider, model string) (types.LLMProvider, error)
}

// ProviderFunc adapts a function to ProviderFactory.
type ProviderFunc func(provider, model string) (types.LLMProvider, error)

// CreateProvider calls f.
func (f ProviderFunc) CreateProvider(provider, model string) (types.LLMProvider, error) {
	return f(provider, model)
}

// State is one user session. Methods are safe for concurrent use; a
// conversation runs one turn at a time.
type State struct {
	mu            sync.Mutex
	settings      *settings.Settings
	registry      *database.Registry
	store         storage.Store
	providers     ProviderFactory
	conversations *ordered.Map[string, *conversation.Conversation]
	current       string
	retry         *conversation.RetryRequest
	busy          map[string]bool

	cache        *conversation.AgentCache
	runner       *conversation.Runner
	agentConfig  *agent.Config
	systemPrompt string
	logger       *zap.Logger
}

// Option configures a State.
type Option func(*State)

// WithStore persists conversations in store.
func WithStore(store storage.Store) Option {
	return func(s *State) { s.store = store }
}

// WithRegistry uses an existing database registry.
func WithRegistry(r *database.Registry) Option {
	return func(s *State) { s.registry = r }
}

// WithProviders sets the LLM provider factory.
func WithProviders(p ProviderFactory) Option {
	return func(s *State) { s.providers = p }
}

// WithRunner replaces the default turn runner.
func WithRunner(r *conversation.Runner) Option {
	return func(s *State) { s.runner = r }
}

// WithAgentConfig sets the configuration of created agents.
func WithAgentConfig(cfg *agent.Config) Option {
	return func(s *State) { s.agentConfig = cfg }
}

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(prompt string) Option {
	return func(s *State) { s.systemPrompt = prompt }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *State) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a session over st. Databases are not opened until Connect.
func New(st *settings.Settings, opts ...Option) *State {
	if st == nil {
		st = settings.New()
	}
	s := &State{
		settings:      st,
		conversations: ordered.New[string, *conversation.Conversation](),
		busy:          make(map[string]bool),
		systemPrompt:  DefaultSystemPrompt,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = database.NewRegistry(database.WithLogger(s.logger))
	}
	if s.runner == nil {
		s.runner = conversation.NewRunner(conversation.WithRunnerLogger(s.logger))
	}
	if s.agentConfig == nil {
		s.agentConfig = agent.DefaultConfig()
	}
	s.cache = conversation.NewAgentCache(s.logger)
	s.current = st.CurrentConversation
	return s
}

// Settings returns the session settings. Callers must not modify them
// directly; use the State methods.
func (s *State) Settings() *settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.CurrentConversation = s.current
	return s.settings
}

// Registry returns the database registry.
func (s *State) Registry() *database.Registry {
	return s.registry
}

// Connect opens every configured database. Failures are collected and do
// not stop the others from connecting.
func (s *State) Connect(ctx context.Context) error {
	s.mu.Lock()
	dbs := append([]settings.DatabaseProps(nil), s.settings.Databases...)
	s.mu.Unlock()

	var errs []error
	for _, db := range dbs {
		if s.registry.Has(db.ID) {
			continue
		}
		if err := s.registry.AddConnection(ctx, db.ID, db.URI); err != nil {
			s.logger.Warn("database unavailable", zap.String("database", db.ID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SnapshotStore writes a verified copy of the conversation store to dest.
// Stores without file snapshots return storage.ErrUnsupported.
func (s *State) SnapshotStore(ctx context.Context, dest string) error {
	if s.store == nil {
		return fmt.Errorf("%w: no conversation store configured", storage.ErrUnsupported)
	}
	snap, ok := s.store.(storage.Snapshotter)
	if !ok {
		return fmt.Errorf("%w: %T has no file snapshots", storage.ErrUnsupported, s.store)
	}
	if err := snap.Snapshot(ctx, dest); err != nil {
		return err
	}
	s.logger.Info("conversation store snapshot written", zap.String("path", dest))
	return nil
}

// Close releases agents, database connections and the store.
func (s *State) Close() error {
	s.cache.Clear()
	errs := []error{s.registry.Close()}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
