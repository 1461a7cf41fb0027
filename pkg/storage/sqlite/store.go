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

// Package sqlite stores conversations in a SQLite file, one JSON record per
// conversation plus a log of the queries each answer ran.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/chatdb/internal/sqlitedriver"
	"github.com/teradata-labs/chatdb/pkg/conversation"
	"github.com/teradata-labs/chatdb/pkg/storage"
)

// Store is a storage.Store over SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

// Open opens or creates the store at path and applies pending migrations.
// An empty path or ":memory:" opens a private in-memory store.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open(sqlitedriver.DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store %s: %w", path, err)
	}
	if sqlitedriver.InMemory(path) {
		db.SetMaxOpenConns(1)
	}

	migrator, err := NewMigrator(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := migrator.MigrateUp(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate conversation store: %w", err)
	}
	return &Store{db: db, path: path, logger: logger}, nil
}

// Save inserts or replaces conv and rewrites its query log.
func (s *Store) Save(ctx context.Context, conv *conversation.Conversation) error {
	record, err := storage.Encode(conv)
	if err != nil {
		return err
	}
	dbIDs, err := json.Marshal(conv.DatabaseIDs)
	if err != nil {
		return fmt.Errorf("failed to encode database ids: %w", err)
	}
	now := time.Now().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (id, model, database_ids, message_count, record, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			model = excluded.model,
			database_ids = excluded.database_ids,
			message_count = excluded.message_count,
			record = excluded.record,
			updated_at = excluded.updated_at
	`, conv.ID, conv.Model, string(dbIDs), len(conv.Messages), record, now, conv.LastUpdate.UnixMilli()); err != nil {
		return fmt.Errorf("failed to save conversation '%s': %w", conv.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM query_log WHERE conversation_id = ?`, conv.ID); err != nil {
		return fmt.Errorf("failed to reset query log: %w", err)
	}
	for i, msg := range conv.Messages {
		for _, q := range msg.Queries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO query_log (conversation_id, message_index, database_id, query, row_count, logged_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, conv.ID, i, q.Database, q.Query, len(q.Rows), now); err != nil {
				return fmt.Errorf("failed to log query: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation '%s': %w", conv.ID, err)
	}
	s.logger.Debug("conversation saved", zap.String("conversation", conv.ID), zap.Int("messages", len(conv.Messages)))
	return nil
}

// Load returns the conversation with id.
func (s *Store) Load(ctx context.Context, id string) (*conversation.Conversation, error) {
	var record []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM conversations WHERE id = ?`, id).Scan(&record)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("conversation '%s': %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation '%s': %w", id, err)
	}
	return storage.Decode(record)
}

// LoadAll returns every conversation in creation order.
func (s *Store) LoadAll(ctx context.Context) ([]*conversation.Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM conversations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []*conversation.Conversation
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conv, err := storage.Decode(record)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// List returns conversation summaries in creation order.
func (s *Store) List(ctx context.Context) ([]storage.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, database_ids, message_count, updated_at
		FROM conversations ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []storage.Summary
	for rows.Next() {
		var (
			sum       storage.Summary
			dbIDs     string
			updatedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.Model, &dbIDs, &sum.Messages, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		if err := json.Unmarshal([]byte(dbIDs), &sum.DatabaseIDs); err != nil {
			return nil, fmt.Errorf("conversation '%s': bad database ids: %w", sum.ID, err)
		}
		sum.UpdatedAt = time.UnixMilli(updatedAt)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the conversation with id and its query log.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM query_log WHERE conversation_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete query log: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation '%s': %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conversation '%s': %w", id, storage.ErrNotFound)
	}
	return tx.Commit()
}

// LoggedQuery is one entry of the query log.
type LoggedQuery struct {
	MessageIndex int
	Database     string
	Query        string
	RowCount     int
}

// QueryLog returns the queries logged for a conversation in message order.
func (s *Store) QueryLog(ctx context.Context, id string) ([]LoggedQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT message_index, database_id, query, row_count
		FROM query_log WHERE conversation_id = ? ORDER BY message_index, id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read query log: %w", err)
	}
	defer rows.Close()

	var out []LoggedQuery
	for rows.Next() {
		var q LoggedQuery
		if err := rows.Scan(&q.MessageIndex, &q.Database, &q.Query, &q.RowCount); err != nil {
			return nil, fmt.Errorf("failed to scan query log: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Snapshot writes a consistent copy of the store to dest with VACUUM INTO
// and checks its integrity. dest must not exist. A failed snapshot leaves
// no file behind.
func (s *Store) Snapshot(ctx context.Context, dest string) error {
	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("snapshot into %s: %w", dest, os.ErrExist)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("snapshot into %s: %w", dest, err)
	}
	if _, err := s.db.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("snapshot into %s: %w", dest, err)
	}
	if err := VerifySnapshot(ctx, dest); err != nil {
		_ = os.Remove(dest)
		return err
	}
	return nil
}

// VerifySnapshot runs PRAGMA integrity_check on a SQLite file.
func VerifySnapshot(ctx context.Context, path string) error {
	db, err := sql.Open(sqlitedriver.DriverName, path)
	if err != nil {
		return fmt.Errorf("verify snapshot %s: %w", path, err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("verify snapshot %s: %w", path, err)
	}
	if result != "ok" {
		return fmt.Errorf("verify snapshot %s: integrity check failed: %s", path, result)
	}
	return nil
}

// Path returns the store location.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var (
	_ storage.Store       = (*Store)(nil)
	_ storage.Snapshotter = (*Store)(nil)
)
