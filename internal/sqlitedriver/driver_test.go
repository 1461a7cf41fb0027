package sqlitedriver_test

import (
	"database/sql"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/chatdb/internal/sqlitedriver"
)

func TestDriverRegistered(t *testing.T) {
	assert.True(t, slices.Contains(sql.Drivers(), sqlitedriver.DriverName), "sqlite3 driver should be registered")
}

func TestSelectLiteral(t *testing.T) {
	db, err := sql.Open(sqlitedriver.DriverName, ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var one int64
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, int64(1), one)
}

func TestFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.db")
	db, err := sql.Open(sqlitedriver.DriverName, path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec("CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO orders (customer) VALUES (?)", "acme")
	require.NoError(t, err)

	var customer string
	require.NoError(t, db.QueryRow("SELECT customer FROM orders WHERE id = 1").Scan(&customer))
	assert.Equal(t, "acme", customer)
}

func TestPragmaTableInfoFunction(t *testing.T) {
	db, err := sql.Open(sqlitedriver.DriverName, ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.Exec("CREATE TABLE staff (id INTEGER PRIMARY KEY, name TEXT NOT NULL)")
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?)", "staff").Scan(&count))
	assert.Equal(t, 2, count)
}

func TestInMemory(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{"", true},
		{":memory:", true},
		{"file::memory:?cache=shared", true},
		{"file:test.db?mode=memory", true},
		{"/tmp/chatdb.db", false},
		{"sales.db", false},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, sqlitedriver.InMemory(tt.dsn))
		})
	}
}
