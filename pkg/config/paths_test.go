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
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDataDir(t *testing.T) {
	t.Run("default to ~/.chatdb", func(t *testing.T) {
		t.Setenv(DataDirEnv, "")

		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(homeDir, ".chatdb"), GetDataDir())
	})

	t.Run("absolute override", func(t *testing.T) {
		dir := t.TempDir()
		t.Setenv(DataDirEnv, dir)
		assert.Equal(t, dir, GetDataDir())
		assert.Equal(t, filepath.Join(dir, SettingsFileName), SettingsPath())
		assert.Equal(t, filepath.Join(dir, StoreFileName), StorePath())
	})

	t.Run("tilde expansion", func(t *testing.T) {
		t.Setenv(DataDirEnv, "~/chat")
		homeDir, err := os.UserHomeDir()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(homeDir, "chat"), GetDataDir())
	})

	t.Run("relative path becomes absolute", func(t *testing.T) {
		t.Setenv(DataDirEnv, "relative/chat")
		wd, err := os.Getwd()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(wd, "relative/chat"), GetDataDir())
	})
}

func TestEnsureDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "chatdb")
	t.Setenv(DataDirEnv, dir)

	got, err := EnsureDataDir()
	require.NoError(t, err)
	assert.Equal(t, dir, got)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
