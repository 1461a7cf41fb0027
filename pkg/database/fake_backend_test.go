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
package database

import (
	"context"
	"sync"

	"github.com/teradata-labs/chatdb/pkg/fabric"
)

// fakeBackend counts calls and returns canned results.
type fakeBackend struct {
	mu     sync.Mutex
	calls  int
	closed bool
	rows   []fabric.Row
	err    error
	schema map[string]*fabric.Schema
}

func (f *fakeBackend) record() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeBackend) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) ExecuteQuery(ctx context.Context, query string) (*fabric.QueryResult, error) {
	f.record()
	if f.err != nil {
		return nil, f.err
	}
	return &fabric.QueryResult{Rows: f.rows, RowCount: len(f.rows)}, nil
}

func (f *fakeBackend) GetSchema(ctx context.Context, resource string) (*fabric.Schema, error) {
	f.record()
	if s, ok := f.schema[resource]; ok {
		return s, nil
	}
	return nil, fabric.NoSuchTable(resource)
}

func (f *fakeBackend) ListResources(ctx context.Context) ([]fabric.Resource, error) {
	f.record()
	var out []fabric.Resource
	for name := range f.schema {
		out = append(out, fabric.Resource{Name: name, Type: "table"})
	}
	return out, nil
}

func (f *fakeBackend) Ping(ctx context.Context) error { return nil }

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}
