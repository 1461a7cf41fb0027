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
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/internal/ordered"
	"github.com/teradata-labs/chatdb/pkg/fabric"
	"github.com/teradata-labs/chatdb/pkg/fabric/factory"
)

// maxSuggestions bounds the names offered with a NoSuchDatabase error.
const maxSuggestions = 3

// Opener connects to a database URI.
type Opener func(ctx context.Context, uri string) (fabric.ExecutionBackend, error)

// Registry maps logical database names to adapters, in insertion order.
// Every operation reaches at most one adapter.
type Registry struct {
	mu       sync.RWMutex
	adapters *ordered.Map[string, *Adapter]
	handler  QueryHandler
	opener   Opener
	logger   *zap.Logger
	// view registries share their parent's backends and never close them.
	view bool
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithHandler sets the shared tracking callback.
func WithHandler(h QueryHandler) RegistryOption {
	return func(r *Registry) { r.handler = h }
}

// WithOpener replaces the URI opener used by AddConnection.
func WithOpener(o Opener) RegistryOption {
	return func(r *Registry) { r.opener = o }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		adapters: ordered.New[string, *Adapter](),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.opener == nil {
		logger := r.logger
		r.opener = func(ctx context.Context, uri string) (fabric.ExecutionBackend, error) {
			return factory.Open(ctx, uri, factory.WithLogger(logger))
		}
	}
	return r
}

// SetHandler rebinds every adapter to h.
func (r *Registry) SetHandler(h QueryHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
	for _, name := range ordered.Keys(r.adapters) {
		a, _ := r.adapters.Get(name)
		r.adapters.Set(name, a.bound(name, h))
	}
}

// AddConnection opens uri and registers it under name.
func (r *Registry) AddConnection(ctx context.Context, name, uri string) error {
	if err := validateName(name); err != nil {
		return err
	}
	backend, err := r.opener(ctx, uri)
	if err != nil {
		return fmt.Errorf("failed to connect database '%s': %w", name, err)
	}
	return r.AddAdapter(name, NewAdapter(backend, WithAdapterLogger(r.logger)))
}

// AddAdapter registers adapter under name and binds it to the shared
// callback. An existing adapter with the same name is replaced in place and
// closed.
func (r *Registry) AddAdapter(name string, adapter *Adapter) error {
	if err := validateName(name); err != nil {
		return err
	}
	if adapter == nil {
		return fabric.InvalidArgument("adapter for database '%s' is nil", name)
	}

	r.mu.Lock()
	previous, replaced := r.adapters.Get(name)
	r.adapters.Set(name, adapter.bound(name, r.handler))
	r.mu.Unlock()

	if replaced && previous.backend != adapter.backend && !r.view {
		if err := previous.Close(); err != nil {
			r.logger.Warn("failed to close replaced database", zap.String("database", name), zap.Error(err))
		}
	}
	r.logger.Info("database registered", zap.String("database", name), zap.Bool("replaced", replaced))
	return nil
}

// Remove unregisters name and closes its connection.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	adapter, ok := r.adapters.Get(name)
	if ok {
		r.adapters.Delete(name)
	}
	r.mu.Unlock()

	if !ok {
		return r.noSuchDatabase(name)
	}
	if r.view {
		return nil
	}
	return adapter.Close()
}

// Rename moves a database to a new name, keeping its position.
func (r *Registry) Rename(from, to string) error {
	if err := validateName(to); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	adapter, ok := r.adapters.Get(from)
	if !ok {
		return r.noSuchDatabaseLocked(from)
	}
	if from != to && ordered.Has(r.adapters, to) {
		return fabric.InvalidArgument("database '%s' already exists", to)
	}
	ordered.Rename(r.adapters, from, to)
	r.adapters.Set(to, adapter.bound(to, r.handler))
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ordered.Has(r.adapters, name)
}

// ListDatabases returns registered names in insertion order.
func (r *Registry) ListDatabases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return ordered.Keys(r.adapters)
}

// Adapter returns the adapter registered under name.
func (r *Registry) Adapter(name string) (*Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters.Get(name)
	if !ok {
		return nil, r.noSuchDatabaseLocked(name)
	}
	return adapter, nil
}

// ListTables lists the tables of database name.
func (r *Registry) ListTables(ctx context.Context, name string) ([]string, error) {
	adapter, err := r.Adapter(name)
	if err != nil {
		return nil, err
	}
	return adapter.ListTables(ctx)
}

// DescribeTables describes tables of database name, all tables when empty.
func (r *Registry) DescribeTables(ctx context.Context, name string, tables []string) (string, error) {
	adapter, err := r.Adapter(name)
	if err != nil {
		return "", err
	}
	return adapter.DescribeTables(ctx, tables)
}

// LoadData runs query against database name.
func (r *Registry) LoadData(ctx context.Context, name, query string) ([]Document, error) {
	adapter, err := r.Adapter(name)
	if err != nil {
		return nil, err
	}
	return adapter.LoadData(ctx, query)
}

// View returns a registry over the named databases, in the given order,
// reporting to handler. The view shares this registry's connections and
// closing it leaves them open.
func (r *Registry) View(names []string, handler QueryHandler) (*Registry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := &Registry{
		adapters: ordered.New[string, *Adapter](),
		handler:  handler,
		opener:   r.opener,
		logger:   r.logger,
		view:     true,
	}
	for _, name := range names {
		adapter, ok := r.adapters.Get(name)
		if !ok {
			return nil, r.noSuchDatabaseLocked(name)
		}
		view.adapters.Set(name, adapter.bound(name, handler))
	}
	return view, nil
}

// Close closes every connection owned by the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	adapters := ordered.Values(r.adapters)
	r.adapters = ordered.New[string, *Adapter]()
	r.mu.Unlock()

	if r.view {
		return nil
	}
	var errs []error
	for _, a := range adapters {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", a.name, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) noSuchDatabase(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.noSuchDatabaseLocked(name)
}

func (r *Registry) noSuchDatabaseLocked(name string) error {
	var suggestions []string
	for _, m := range fuzzy.Find(name, ordered.Keys(r.adapters)) {
		suggestions = append(suggestions, m.Str)
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return fabric.NoSuchDatabase(name, suggestions...)
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fabric.InvalidArgument("database name must not be empty")
	}
	return nil
}
