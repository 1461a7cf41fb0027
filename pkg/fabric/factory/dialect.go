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
	"database/sql"
	"fmt"
	"strings"

	"github.com/teradata-labs/chatdb/pkg/fabric"
)

// Dialect names.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
)

// dialect holds the catalog queries for one SQL flavour. Every query takes
// the table name as its only parameter.
type dialect struct {
	name             string
	listTablesQuery  string
	columnsQuery     string
	foreignKeysQuery string
	scanColumn       func(rows *sql.Rows) (fabric.Field, error)
	resourceType     func(raw string) string
}

var dialects = map[string]*dialect{
	DialectSQLite: {
		name: DialectSQLite,
		listTablesQuery: `
			SELECT name, type
			FROM sqlite_master
			WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
			ORDER BY name`,
		columnsQuery: `
			SELECT name, type, "notnull", dflt_value, pk
			FROM pragma_table_info(?)
			ORDER BY cid`,
		foreignKeysQuery: `
			SELECT "from", "table", "to"
			FROM pragma_foreign_key_list(?)`,
		scanColumn: func(rows *sql.Rows) (fabric.Field, error) {
			var (
				name, typ   string
				notnull, pk int
				dflt        sql.NullString
			)
			if err := rows.Scan(&name, &typ, &notnull, &dflt, &pk); err != nil {
				return fabric.Field{}, err
			}
			return fabric.Field{
				Name:       name,
				Type:       typ,
				Nullable:   notnull == 0 && pk == 0,
				PrimaryKey: pk > 0,
				Default:    nullString(dflt),
			}, nil
		},
		resourceType: strings.ToLower,
	},
	DialectPostgres: {
		name: DialectPostgres,
		listTablesQuery: `
			SELECT table_name, table_type
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			ORDER BY table_name`,
		columnsQuery: `
			SELECT c.column_name, c.data_type, c.is_nullable, c.column_default,
				EXISTS (
					SELECT 1
					FROM information_schema.table_constraints tc
					JOIN information_schema.key_column_usage k
						ON tc.constraint_name = k.constraint_name AND tc.table_schema = k.table_schema
					WHERE tc.constraint_type = 'PRIMARY KEY'
						AND tc.table_schema = c.table_schema
						AND tc.table_name = c.table_name
						AND k.column_name = c.column_name
				) AS is_pk
			FROM information_schema.columns c
			WHERE c.table_schema = current_schema() AND c.table_name = $1
			ORDER BY c.ordinal_position`,
		foreignKeysQuery: `
			SELECT kcu.column_name, ccu.table_name, ccu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
			JOIN information_schema.constraint_column_usage ccu
				ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY'
				AND tc.table_schema = current_schema()
				AND tc.table_name = $1`,
		scanColumn:   scanInformationSchemaColumn,
		resourceType: informationSchemaType,
	},
	DialectMySQL: {
		name: DialectMySQL,
		listTablesQuery: `
			SELECT TABLE_NAME, TABLE_TYPE
			FROM information_schema.TABLES
			WHERE TABLE_SCHEMA = DATABASE()
			ORDER BY TABLE_NAME`,
		columnsQuery: `
			SELECT COLUMN_NAME, COLUMN_TYPE, IS_NULLABLE, COLUMN_DEFAULT, COLUMN_KEY = 'PRI'
			FROM information_schema.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
			ORDER BY ORDINAL_POSITION`,
		foreignKeysQuery: `
			SELECT COLUMN_NAME, REFERENCED_TABLE_NAME, REFERENCED_COLUMN_NAME
			FROM information_schema.KEY_COLUMN_USAGE
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ? AND REFERENCED_TABLE_NAME IS NOT NULL`,
		scanColumn:   scanInformationSchemaColumn,
		resourceType: informationSchemaType,
	},
}

func lookupDialect(name string) (*dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("unsupported dialect: %s (supported: sqlite, postgres, mysql)", name)
	}
	return d, nil
}

func scanInformationSchemaColumn(rows *sql.Rows) (fabric.Field, error) {
	var (
		name, typ, nullable string
		dflt                sql.NullString
		pk                  bool
	)
	if err := rows.Scan(&name, &typ, &nullable, &dflt, &pk); err != nil {
		return fabric.Field{}, err
	}
	return fabric.Field{
		Name:       name,
		Type:       typ,
		Nullable:   strings.EqualFold(nullable, "YES"),
		PrimaryKey: pk,
		Default:    nullString(dflt),
	}, nil
}

// informationSchemaType maps "BASE TABLE" / "VIEW" to table / view.
func informationSchemaType(raw string) string {
	if strings.EqualFold(raw, "VIEW") || strings.EqualFold(raw, "SYSTEM VIEW") {
		return "view"
	}
	return "table"
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
