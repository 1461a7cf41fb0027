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
package shuttle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&MockTool{MockName: "load_data"})
	r.Register(&MockTool{MockName: "describe_tables"})
	r.Register(&MockTool{MockName: "list_tables"})

	assert.Equal(t, []string{"load_data", "describe_tables", "list_tables"}, r.List())
	assert.Equal(t, 3, r.Count())

	tools := r.ListTools()
	assert.Equal(t, "describe_tables", tools[1].Name())
}

func TestRegistry_GetReplaceUnregister(t *testing.T) {
	r := NewRegistry()
	first := &MockTool{MockName: "list_tables"}
	second := &MockTool{MockName: "list_tables", MockDescription: "v2"}

	r.Register(first)
	r.Register(second)
	assert.Equal(t, 1, r.Count())

	got, ok := r.Get("list_tables")
	assert.True(t, ok)
	assert.Equal(t, "v2", got.Description())

	assert.True(t, r.IsRegistered("list_tables"))
	r.Unregister("list_tables")
	assert.False(t, r.IsRegistered("list_tables"))

	_, ok = r.Get("list_tables")
	assert.False(t, ok)
}
