// Package sqlitedriver registers a SQLite database/sql driver under the name
// "sqlite3". CGO builds use go-sqlcipher, builds without CGO fall back to the
// pure-Go modernc.org/sqlite driver.
//
// Both the sqlite:// user databases and the local conversation store open
// through this driver:
//
//	import _ "github.com/teradata-labs/chatdb/internal/sqlitedriver"
package sqlitedriver
