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

// Package backend opens a conversation store from a URI. It sits above the
// concrete stores so they can share pkg/storage without an import cycle.
package backend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/pkg/storage"
	"github.com/teradata-labs/chatdb/pkg/storage/redis"
	"github.com/teradata-labs/chatdb/pkg/storage/sqlite"
)

// Open opens the store named by uri:
//
//	sqlite:///abs/path.db, sqlite://relative.db, /plain/path.db  SQLite file
//	memory                                                         in-memory SQLite
//	redis://host:6379/0, rediss://...                              Redis
func Open(ctx context.Context, uri string, logger *zap.Logger) (storage.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	uri = strings.TrimSpace(uri)

	scheme, rest, hasScheme := strings.Cut(uri, "://")
	if !hasScheme {
		if uri == "" {
			return nil, fmt.Errorf("conversation store location must not be empty")
		}
		if uri == "memory" {
			return sqlite.Open(ctx, ":memory:", logger)
		}
		return sqlite.Open(ctx, uri, logger)
	}

	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		return sqlite.Open(ctx, rest, logger)
	case "redis", "rediss":
		return redis.Open(ctx, uri, redis.WithLogger(logger))
	default:
		return nil, fmt.Errorf("unsupported conversation store scheme %q (supported: sqlite, redis)", scheme)
	}
}
