package sqlitedriver

import "strings"

// DriverName is the database/sql name the active SQLite driver registers.
const DriverName = "sqlite3"

// InMemory reports whether dsn names an in-memory database. Every new
// connection to such a database sees an empty schema, so callers pin the
// pool to a single connection.
func InMemory(dsn string) bool {
	if dsn == "" || dsn == ":memory:" {
		return true
	}
	if strings.HasPrefix(dsn, "file::memory:") {
		return true
	}
	return strings.Contains(dsn, "mode=memory")
}
