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

// Package config locates the chatdb data directory and the files kept in it.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DataDirEnv overrides the data directory.
const DataDirEnv = "CHATDB_DATA_DIR"

// File names inside the data directory.
const (
	ConfigFileName   = "chatdb.yaml"
	SettingsFileName = "settings.yaml"
	StoreFileName    = "conversations.db"
)

// GetDataDir returns the chatdb data directory.
//
// Priority:
// 1. CHATDB_DATA_DIR environment variable (if set and non-empty)
// 2. ~/.chatdb (default)
//
// The returned path is absolute. A leading ~ in CHATDB_DATA_DIR is expanded
// to the user's home directory.
//
// Examples:
//
//	CHATDB_DATA_DIR=/srv/chatdb       -> /srv/chatdb
//	CHATDB_DATA_DIR=~/chat            -> /home/user/chat
//	CHATDB_DATA_DIR=relative/path     -> /current/dir/relative/path
//	CHATDB_DATA_DIR not set           -> /home/user/.chatdb
//
// It reads the environment directly because it runs before the config file
// is located.
func GetDataDir() string {
	if dataDir := os.Getenv(DataDirEnv); dataDir != "" {
		return expandPath(dataDir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".chatdb"
	}
	return filepath.Join(homeDir, ".chatdb")
}

// GetSubPath returns a path within the data directory.
// Example: GetSubPath("backups") returns ~/.chatdb/backups
func GetSubPath(name string) string {
	return filepath.Join(GetDataDir(), name)
}

// SettingsPath returns the default settings file.
func SettingsPath() string {
	return GetSubPath(SettingsFileName)
}

// StorePath returns the default conversation store file.
func StorePath() string {
	return GetSubPath(StoreFileName)
}

// EnsureDataDir creates the data directory if it does not exist.
func EnsureDataDir() (string, error) {
	dir := GetDataDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// ExpandPath expands a leading ~ and makes path absolute.
func ExpandPath(path string) string {
	return expandPath(path)
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
