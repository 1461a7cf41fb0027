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
package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teradata-labs/chatdb/internal/sqlitedriver"
)

// newTestDB opens a temporary file database.
func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(sqlitedriver.DriverName, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, tableName string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?",
		tableName,
	).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "conversations", migrations[0].Description)
	assert.Equal(t, "query_log", migrations[1].Description)
	for _, m := range migrations {
		assert.NotEmpty(t, m.UpSQL)
	}
}

func TestMigrateUp_FreshDB(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	migrator, err := NewMigrator(db, zaptest.NewLogger(t))
	require.NoError(t, err)

	version, err := migrator.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Zero(t, version)

	require.NoError(t, migrator.MigrateUp(ctx))

	version, err = migrator.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
	for _, table := range []string{"schema_migrations", "conversations", "query_log"} {
		assert.True(t, tableExists(t, db, table), table)
	}
}

func TestMigrateUp_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	migrator, err := NewMigrator(db, nil)
	require.NoError(t, err)
	require.NoError(t, migrator.MigrateUp(ctx))
	require.NoError(t, migrator.MigrateUp(ctx))

	version, err := migrator.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestCurrentVersion_NoTable(t *testing.T) {
	migrator, err := NewMigrator(newTestDB(t), nil)
	require.NoError(t, err)
	version, err := migrator.CurrentVersion(context.Background())
	require.NoError(t, err)
	assert.Zero(t, version)
}
