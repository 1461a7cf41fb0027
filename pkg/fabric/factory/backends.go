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
package factory

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/fabric"
)

// DefaultMaxRows caps the rows kept from a single statement.
const DefaultMaxRows = 10000

// SQLBackend runs statements against a database/sql handle. Every call
// takes its own connection from the pool and returns it before the call
// completes.
type SQLBackend struct {
	db      *sql.DB
	dialect *dialect
	breaker *fabric.Breaker
	logger  *zap.Logger
	maxRows int
}

var _ fabric.ExecutionBackend = (*SQLBackend)(nil)

// Option configures an SQLBackend.
type Option func(*SQLBackend)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *SQLBackend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMaxRows caps the number of rows kept per statement.
func WithMaxRows(n int) Option {
	return func(b *SQLBackend) {
		if n > 0 {
			b.maxRows = n
		}
	}
}

// WithBreakerConfig overrides the connection breaker settings.
func WithBreakerConfig(cfg fabric.BreakerConfig) Option {
	return func(b *SQLBackend) {
		b.breaker = fabric.NewBreaker(cfg, b.logger)
	}
}

// NewSQLBackend wraps an open handle. dialectName is one of the Dialect
// constants.
func NewSQLBackend(db *sql.DB, dialectName string, opts ...Option) (*SQLBackend, error) {
	d, err := lookupDialect(dialectName)
	if err != nil {
		return nil, err
	}
	b := &SQLBackend{
		db:      db,
		dialect: d,
		logger:  zap.NewNop(),
		maxRows: DefaultMaxRows,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.breaker == nil {
		b.breaker = fabric.NewBreaker(fabric.DefaultBreakerConfig(), b.logger)
	}
	return b, nil
}

func (b *SQLBackend) Name() string {
	return b.dialect.name
}

// withConn acquires a scoped connection, runs fn and releases the connection
// on every path. Errors come back classified.
func (b *SQLBackend) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	return b.breaker.Execute(func() error {
		conn, err := b.db.Conn(ctx)
		if err != nil {
			return &fabric.Error{Kind: fabric.KindConnection, Message: err.Error(), Err: err}
		}
		defer func() {
			if cerr := conn.Close(); cerr != nil {
				b.logger.Warn("failed to release connection", zap.Error(cerr))
			}
		}()
		return fabric.ClassifyError(fn(conn))
	})
}

func (b *SQLBackend) ExecuteQuery(ctx context.Context, query string) (*fabric.QueryResult, error) {
	start := time.Now()
	result := &fabric.QueryResult{}

	err := b.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		columns, err := rows.ColumnTypes()
		if err != nil {
			return err
		}
		result.Columns = make([]fabric.Column, len(columns))
		for i, col := range columns {
			nullable, _ := col.Nullable()
			result.Columns[i] = fabric.Column{
				Name:     col.Name(),
				Type:     col.DatabaseTypeName(),
				Nullable: nullable,
			}
		}

		for rows.Next() {
			if len(result.Rows) >= b.maxRows {
				result.Truncated = true
				break
			}
			values := make([]interface{}, len(columns))
			ptrs := make([]interface{}, len(columns))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				return err
			}
			for i, v := range values {
				if raw, ok := v.([]byte); ok {
					values[i] = string(raw)
				}
			}
			result.Rows = append(result.Rows, fabric.Row(values))
		}
		return rows.Err()
	})
	if err != nil {
		b.logger.Debug("query failed",
			zap.String("dialect", b.dialect.name),
			zap.String("query", query),
			zap.Error(err))
		return nil, err
	}

	result.RowCount = len(result.Rows)
	result.ExecutionStats.DurationMs = time.Since(start).Milliseconds()
	if result.Truncated {
		b.logger.Warn("result truncated",
			zap.String("dialect", b.dialect.name),
			zap.Int("max_rows", b.maxRows))
	}
	return result, nil
}

func (b *SQLBackend) GetSchema(ctx context.Context, resource string) (*fabric.Schema, error) {
	schema := &fabric.Schema{Name: resource, Type: "table"}

	err := b.withConn(ctx, func(conn *sql.Conn) error {
		fields, err := b.columns(ctx, conn, resource)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return fabric.NoSuchTable(resource)
		}
		fks, err := b.foreignKeys(ctx, conn, resource)
		if err != nil {
			return err
		}
		for i := range fields {
			if fk, ok := fks[fields[i].Name]; ok {
				fields[i].ForeignKey = fk
			}
		}
		schema.Fields = fields
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schema, nil
}

func (b *SQLBackend) columns(ctx context.Context, conn *sql.Conn, table string) ([]fabric.Field, error) {
	rows, err := conn.QueryContext(ctx, b.dialect.columnsQuery, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var fields []fabric.Field
	for rows.Next() {
		field, err := b.dialect.scanColumn(rows)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, rows.Err()
}

func (b *SQLBackend) foreignKeys(ctx context.Context, conn *sql.Conn, table string) (map[string]*fabric.ForeignKey, error) {
	rows, err := conn.QueryContext(ctx, b.dialect.foreignKeysQuery, table)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	fks := make(map[string]*fabric.ForeignKey)
	for rows.Next() {
		var column, refTable string
		var refColumn sql.NullString
		if err := rows.Scan(&column, &refTable, &refColumn); err != nil {
			return nil, err
		}
		fks[column] = &fabric.ForeignKey{ReferencedTable: refTable, ReferencedColumn: refColumn.String}
	}
	return fks, rows.Err()
}

func (b *SQLBackend) ListResources(ctx context.Context) ([]fabric.Resource, error) {
	var resources []fabric.Resource

	err := b.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, b.dialect.listTablesQuery)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var name, typ string
			if err := rows.Scan(&name, &typ); err != nil {
				return err
			}
			resources = append(resources, fabric.Resource{Name: name, Type: b.dialect.resourceType(typ)})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return resources, nil
}

func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.withConn(ctx, func(conn *sql.Conn) error {
		return conn.PingContext(ctx)
	})
}

func (b *SQLBackend) Close() error {
	return b.db.Close()
}
