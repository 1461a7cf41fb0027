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

// Package builtin provides the database tools exposed to the agent.
package builtin

import (
	"context"

	"github.com/teradata-labs/chatdb/pkg/database"
	"github.com/teradata-labs/chatdb/pkg/fabric"
	"github.com/teradata-labs/chatdb/pkg/shuttle"
)

// Tool names. They appear in corrective system messages, so they are part
// of the agent-facing contract.
const (
	LoadDataTool       = "load_data"
	DescribeTablesTool = "describe_tables"
	ListTablesTool     = "list_tables"
	ListDatabasesTool  = "list_databases"
)

// DatabaseRegistry is the multi-database surface the tools dispatch to.
// *database.Registry implements it.
type DatabaseRegistry interface {
	ListDatabases() []string
	ListTables(ctx context.Context, name string) ([]string, error)
	DescribeTables(ctx context.Context, name string, tables []string) (string, error)
	LoadData(ctx context.Context, name, query string) ([]database.Document, error)
}

var _ DatabaseRegistry = (*database.Registry)(nil)

// DatabaseTools returns the four database tools in the order they are
// offered to the agent.
func DatabaseTools(reg DatabaseRegistry) []shuttle.Tool {
	return []shuttle.Tool{
		&LoadData{reg: reg},
		&DescribeTables{reg: reg},
		&ListTables{reg: reg},
		&ListDatabases{reg: reg},
	}
}

// RegisterDatabaseTools registers the database tools with r.
func RegisterDatabaseTools(r *shuttle.Registry, reg DatabaseRegistry) {
	for _, tool := range DatabaseTools(reg) {
		r.Register(tool)
	}
}

func databaseParam() *shuttle.JSONSchema {
	return shuttle.NewStringSchema("Name of the database, as returned by list_databases").WithMinLength(1)
}

func stringParam(params map[string]interface{}, key string) string {
	s, _ := params[key].(string)
	return s
}

// LoadData runs one SQL query against one database.
type LoadData struct {
	reg DatabaseRegistry
}

func (t *LoadData) Name() string { return LoadDataTool }

func (t *LoadData) Description() string {
	return `Query and load data from the given database, returning one line per row with the column values separated by ", ".

Use this tool to answer questions with data. Write a single SQL statement in the database's dialect.
If the database name is unknown, call list_databases first. If a table is unknown, call list_tables first. If a column is unknown, call describe_tables first.`
}

func (t *LoadData) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for querying a database",
		map[string]*shuttle.JSONSchema{
			"database": databaseParam(),
			"query":    shuttle.NewStringSchema("An SQL query to filter tables and rows"),
		},
		[]string{"database", "query"},
	)
}

func (t *LoadData) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	name := stringParam(params, "database")
	docs, err := t.reg.LoadData(ctx, name, stringParam(params, "query"))
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(docs))
	rowCount, truncated := 0, false
	for i, d := range docs {
		texts[i] = d.Text
		if d.Notice {
			truncated = true
		} else {
			rowCount++
		}
	}
	return &shuttle.Result{
		Success:  true,
		Data:     texts,
		Metadata: map[string]interface{}{"database": name, "row_count": rowCount, "truncated": truncated},
	}, nil
}

// DescribeTables renders table definitions.
type DescribeTables struct {
	reg DatabaseRegistry
}

func (t *DescribeTables) Name() string { return DescribeTablesTool }

func (t *DescribeTables) Description() string {
	return `Describe the specified tables in the given database as CREATE TABLE statements, including column types, primary keys and foreign keys.

Omit tables to describe every table. If a table is unknown, call list_tables first. If the database is unknown, call list_databases first.`
}

func (t *DescribeTables) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for describing tables",
		map[string]*shuttle.JSONSchema{
			"database": databaseParam(),
			"tables":   shuttle.NewArraySchema("Table names to describe", shuttle.NewStringSchema("Table name")),
		},
		[]string{"database"},
	)
}

func (t *DescribeTables) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	tables, err := stringList(params["tables"])
	if err != nil {
		return nil, err
	}

	text, err := t.reg.DescribeTables(ctx, stringParam(params, "database"), tables)
	if err != nil {
		return nil, err
	}
	return &shuttle.Result{Success: true, Data: text}, nil
}

func stringList(v interface{}) ([]string, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fabric.InvalidArgument("table name %v is not a string", item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fabric.InvalidArgument("tables must be a list of names, got %T", v)
	}
}

// ListTables lists the tables of one database.
type ListTables struct {
	reg DatabaseRegistry
}

func (t *ListTables) Name() string { return ListTablesTool }

func (t *ListTables) Description() string {
	return `Return the list of available tables in the given database.

To retrieve details about the columns of specific tables, use describe_tables. If the database is unknown, call list_databases first.`
}

func (t *ListTables) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema(
		"Parameters for listing tables",
		map[string]*shuttle.JSONSchema{
			"database": databaseParam(),
		},
		[]string{"database"},
	)
}

func (t *ListTables) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	tables, err := t.reg.ListTables(ctx, stringParam(params, "database"))
	if err != nil {
		return nil, err
	}
	return &shuttle.Result{Success: true, Data: tables}, nil
}

// ListDatabases lists the databases available to the conversation.
type ListDatabases struct {
	reg DatabaseRegistry
}

func (t *ListDatabases) Name() string { return ListDatabasesTool }

func (t *ListDatabases) Description() string {
	return `Return the list of available databases.

To retrieve the tables of a specific database, use list_tables.`
}

func (t *ListDatabases) InputSchema() *shuttle.JSONSchema {
	return shuttle.NewObjectSchema("No parameters", map[string]*shuttle.JSONSchema{}, nil)
}

func (t *ListDatabases) Execute(ctx context.Context, params map[string]interface{}) (*shuttle.Result, error) {
	return &shuttle.Result{Success: true, Data: t.reg.ListDatabases()}, nil
}
