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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/chatdb/pkg/fabric"
	"github.com/teradata-labs/chatdb/pkg/fabric/factory"
)

type trackedCall struct {
	database string
	query    string
	rows     []fabric.Row
}

func TestAdapter_LoadData_CallbackBeforeReturn(t *testing.T) {
	backend := &fakeBackend{rows: []fabric.Row{{int64(1), "acme", nil}, {int64(2), "globex", 9.5}}}

	var calls []trackedCall
	returned := false
	handler := func(db, query string, rows []fabric.Row, _ bool) {
		assert.False(t, returned, "callback must run before LoadData returns")
		calls = append(calls, trackedCall{db, query, rows})
	}
	adapter := NewAdapter(backend).bound("sales", handler)

	docs, err := adapter.LoadData(context.Background(), "SELECT * FROM customers")
	returned = true
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, trackedCall{"sales", "SELECT * FROM customers", backend.rows}, calls[0])
	assert.Equal(t, []Document{{Text: "1, acme, NULL"}, {Text: "2, globex, 9.5"}}, docs)
}

func TestAdapter_LoadData_EmptyQuery(t *testing.T) {
	backend := &fakeBackend{}
	fired := 0
	adapter := NewAdapter(backend, WithQueryHandler(func(string, string, []fabric.Row, bool) { fired++ }))

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := adapter.LoadData(context.Background(), q)
		require.ErrorIs(t, err, fabric.ErrInvalidArgument)
	}
	assert.Zero(t, fired)
	assert.Zero(t, backend.Calls(), "empty query must not reach the database")
}

func TestAdapter_LoadData_FailureDoesNotTrack(t *testing.T) {
	backend := &fakeBackend{err: errors.New("no such table: invoices")}
	fired := 0
	adapter := NewAdapter(backend, WithQueryHandler(func(string, string, []fabric.Row, bool) { fired++ }))

	_, err := adapter.LoadData(context.Background(), "SELECT * FROM invoices")
	require.ErrorIs(t, err, fabric.ErrNoSuchTable)
	assert.Zero(t, fired)
}

func TestAdapter_DescribeTables(t *testing.T) {
	dflt := "'emea'"
	backend := &fakeBackend{schema: map[string]*fabric.Schema{
		"customers": {Name: "customers", Fields: []fabric.Field{
			{Name: "id", Type: "INTEGER", PrimaryKey: true},
			{Name: "region", Type: "TEXT", Nullable: true, Default: &dflt},
		}},
		"orders": {Name: "orders", Fields: []fabric.Field{
			{Name: "id", Type: "INTEGER", PrimaryKey: true},
			{Name: "customer_id", Type: "INTEGER", Nullable: true,
				ForeignKey: &fabric.ForeignKey{ReferencedTable: "customers", ReferencedColumn: "id"}},
		}},
	}}
	adapter := NewAdapter(backend)

	text, err := adapter.DescribeTables(context.Background(), []string{"customers"})
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE customers (\n"+
		"\tid INTEGER NOT NULL,\n"+
		"\tregion TEXT DEFAULT 'emea',\n"+
		"\tPRIMARY KEY (id)\n"+
		")", text)

	text, err = adapter.DescribeTables(context.Background(), []string{"orders"})
	require.NoError(t, err)
	assert.Contains(t, text, "FOREIGN KEY (customer_id) REFERENCES customers (id)")

	_, err = adapter.DescribeTables(context.Background(), []string{"customers", "invoices"})
	assert.ErrorIs(t, err, fabric.ErrNoSuchTable)
}

func TestAdapter_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	backend, err := factory.Open(ctx, "sqlite:///"+filepath.Join(t.TempDir(), "hr.db"))
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.ExecuteQuery(ctx, "CREATE TABLE staff (id INTEGER PRIMARY KEY, name TEXT NOT NULL, team TEXT)")
	require.NoError(t, err)
	_, err = backend.ExecuteQuery(ctx, "INSERT INTO staff (name, team) VALUES ('ada', 'core'), ('lin', NULL)")
	require.NoError(t, err)

	adapter := NewAdapter(backend, WithAdapterLogger(zaptest.NewLogger(t))).bound("hr", nil)

	tables, err := adapter.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"staff"}, tables)

	all, err := adapter.DescribeTables(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, all, "CREATE TABLE staff (")
	assert.Contains(t, all, "\tname TEXT NOT NULL")

	docs, err := adapter.LoadData(ctx, "SELECT name, team FROM staff ORDER BY id")
	require.NoError(t, err)
	assert.Equal(t, []Document{{Text: "ada, core"}, {Text: "lin, NULL"}}, docs)

	_, err = adapter.LoadData(ctx, "SELECT salary FROM staff")
	assert.ErrorIs(t, err, fabric.ErrNoSuchColumn)

	blank, err := adapter.DescribeTables(ctx, []string{" ", ""})
	require.NoError(t, err)
	assert.Equal(t, all, blank)
}

func TestAdapter_LoadData_Truncated(t *testing.T) {
	ctx := context.Background()
	backend, err := factory.Open(ctx, "sqlite:///"+filepath.Join(t.TempDir(), "sales.db"), factory.WithMaxRows(2))
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.ExecuteQuery(ctx, "CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = backend.ExecuteQuery(ctx, "INSERT INTO customers (name) VALUES ('acme'), ('globex'), ('initech')")
	require.NoError(t, err)

	var tracked []bool
	var trackedRows int
	adapter := NewAdapter(backend).bound("sales", func(_, _ string, rows []fabric.Row, truncated bool) {
		tracked = append(tracked, truncated)
		trackedRows = len(rows)
	})

	docs, err := adapter.LoadData(ctx, "SELECT name FROM customers ORDER BY id")
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, []Document{{Text: "acme"}, {Text: "globex"}}, docs[:2])
	assert.True(t, docs[2].Notice)
	assert.Contains(t, docs[2].Text, "first 2 rows")
	assert.Equal(t, []bool{true}, tracked)
	assert.Equal(t, 2, trackedRows)

	docs, err = adapter.LoadData(ctx, "SELECT name FROM customers WHERE id = 1")
	require.NoError(t, err)
	assert.Equal(t, []Document{{Text: "acme"}}, docs)
	assert.Equal(t, []bool{true, false}, tracked)
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, "NULL"},
		{"x", "x"},
		{[]byte("raw"), "raw"},
		{int64(42), "42"},
		{12.0, "12"},
		{0.25, "0.25"},
		{true, "true"},
		{ts, "2024-03-09 14:05:00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}
