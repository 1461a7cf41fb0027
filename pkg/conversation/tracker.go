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
package conversation

import (
	"slices"
	"sync"

	"github.com/teradata-labs/chatdb/pkg/database"
	"github.com/teradata-labs/chatdb/pkg/fabric"
)

// QueryTracker queues the statements run during a turn. The queue only
// grows until Drain empties it.
type QueryTracker struct {
	mu      sync.Mutex
	pending []QueryRecord
}

// NewQueryTracker creates an empty tracker.
func NewQueryTracker() *QueryTracker {
	return &QueryTracker{}
}

// Handler returns the callback to bind to a database registry.
func (t *QueryTracker) Handler() database.QueryHandler {
	return t.Record
}

// Record appends one executed statement.
func (t *QueryTracker) Record(db, query string, rows []fabric.Row, truncated bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = append(t.pending, QueryRecord{Database: db, Query: query, Rows: slices.Clone(rows), Truncated: truncated})
}

// Drain returns the queued records in execution order and empties the
// queue.
func (t *QueryTracker) Drain() []QueryRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.pending
	t.pending = nil
	return out
}

// Len returns the number of queued records.
func (t *QueryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
