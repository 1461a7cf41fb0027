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

// Package fabric connects chatdb to relational databases. It opens
// database/sql handles from connection URIs, runs statements on scoped
// connections and classifies driver failures into typed errors.
package fabric

import (
	"context"
)

// ExecutionBackend is one live database connection.
type ExecutionBackend interface {
	// Name returns the dialect identifier ("sqlite", "postgres", "mysql").
	Name() string

	// ExecuteQuery runs a statement and returns its rows in column order.
	// Errors are *Error values.
	ExecuteQuery(ctx context.Context, query string) (*QueryResult, error)

	// GetSchema describes one table or view. An unknown resource yields an
	// error of kind KindNoSuchTable.
	GetSchema(ctx context.Context, resource string) (*Schema, error)

	// ListResources lists tables and views sorted by name.
	ListResources(ctx context.Context) ([]Resource, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying handle.
	Close() error
}

// Row is one result row, values in column order.
type Row []interface{}

// QueryResult is the result of ExecuteQuery.
type QueryResult struct {
	Columns []Column
	Rows    []Row

	// RowCount can exceed len(Rows) when the result was truncated.
	RowCount  int
	Truncated bool

	ExecutionStats ExecutionStats
}

// Column represents a column in tabular results.
type Column struct {
	Name     string
	Type     string
	Nullable bool
}

// ExecutionStats tracks execution metrics.
type ExecutionStats struct {
	DurationMs   int64
	RowsAffected int64
}

// Schema represents the schema of a table or view.
type Schema struct {
	Name   string
	Type   string
	Fields []Field
}

// Field represents a column in a schema.
type Field struct {
	Name       string
	Type       string
	Nullable   bool
	PrimaryKey bool
	ForeignKey *ForeignKey
	Default    *string
}

// ForeignKey represents a foreign key relationship.
type ForeignKey struct {
	ReferencedTable  string
	ReferencedColumn string
}

// Resource is a table or view.
type Resource struct {
	Name string
	Type string
}
