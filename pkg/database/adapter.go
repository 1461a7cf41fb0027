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

// Package database routes schema and query operations to named database
// connections and reports every successful query to a tracking callback.
package database

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/fabric"
)

// QueryHandler receives every successfully executed statement. It is called
// exactly once per successful LoadData, before LoadData returns. truncated
// reports that rows holds only the first part of the result.
type QueryHandler func(database, query string, rows []fabric.Row, truncated bool)

// Adapter exposes one database connection through the list, describe and
// load operations.
type Adapter struct {
	name    string
	backend fabric.ExecutionBackend
	handler QueryHandler
	logger  *zap.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithAdapterLogger sets the adapter logger.
func WithAdapterLogger(logger *zap.Logger) AdapterOption {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithQueryHandler sets the tracking callback of a standalone adapter.
// Registries replace it with their own.
func WithQueryHandler(h QueryHandler) AdapterOption {
	return func(a *Adapter) { a.handler = h }
}

// NewAdapter wraps backend.
func NewAdapter(backend fabric.ExecutionBackend, opts ...AdapterOption) *Adapter {
	a := &Adapter{backend: backend, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// bound returns a copy of a reporting under name to handler.
func (a *Adapter) bound(name string, handler QueryHandler) *Adapter {
	c := *a
	c.name = name
	c.handler = handler
	c.logger = a.logger.With(zap.String("database", name))
	return &c
}

// Name returns the logical name the adapter is registered under.
func (a *Adapter) Name() string { return a.name }

// Backend returns the underlying connection.
func (a *Adapter) Backend() fabric.ExecutionBackend { return a.backend }

// ListTables returns table and view names sorted by name.
func (a *Adapter) ListTables(ctx context.Context) ([]string, error) {
	resources, err := a.backend.ListResources(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(resources))
	for i, r := range resources {
		names[i] = r.Name
	}
	return names, nil
}

// DescribeTables renders CREATE TABLE statements for tables, or for every
// table when tables names none. Blank names are ignored. An unknown table
// fails the whole call with an error of kind fabric.KindNoSuchTable.
func (a *Adapter) DescribeTables(ctx context.Context, tables []string) (string, error) {
	named := make([]string, 0, len(tables))
	for _, table := range tables {
		if table = strings.TrimSpace(table); table != "" {
			named = append(named, table)
		}
	}
	if len(named) == 0 {
		all, err := a.ListTables(ctx)
		if err != nil {
			return "", err
		}
		named = all
	}

	statements := make([]string, 0, len(named))
	for _, table := range named {
		schema, err := a.backend.GetSchema(ctx, table)
		if err != nil {
			return "", err
		}
		statements = append(statements, renderCreateTable(schema))
	}
	return strings.Join(statements, "\n\n"), nil
}

// LoadData runs query and returns one document per row. The tracking
// callback fires once on success and never on failure.
func (a *Adapter) LoadData(ctx context.Context, query string) ([]Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fabric.InvalidArgument("a query parameter is necessary to filter the data")
	}

	result, err := a.backend.ExecuteQuery(ctx, query)
	if err != nil {
		a.logger.Debug("load_data failed", zap.String("query", query), zap.Error(err))
		return nil, fabric.ClassifyError(err)
	}

	if a.handler != nil {
		a.handler(a.name, query, result.Rows, result.Truncated)
	}

	docs := make([]Document, len(result.Rows), len(result.Rows)+1)
	for i, row := range result.Rows {
		docs[i] = RowDocument(row)
	}
	if result.Truncated {
		docs = append(docs, TruncationNotice(len(result.Rows)))
	}
	a.logger.Debug("load_data",
		zap.String("query", query),
		zap.Int("rows", len(result.Rows)),
		zap.Bool("truncated", result.Truncated),
		zap.Int64("duration_ms", result.ExecutionStats.DurationMs))
	return docs, nil
}

// Close closes the underlying connection.
func (a *Adapter) Close() error {
	return a.backend.Close()
}
