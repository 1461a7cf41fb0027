//go:build cgo

package sqlitedriver

import (
	_ "github.com/mutecomm/go-sqlcipher/v4" // registers "sqlite3"
)

// EncryptionSupported reports whether PRAGMA key is honoured. True with CGO.
const EncryptionSupported = true
