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
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/chatdb/pkg/fabric"
)

func TestNormalizeSchema_ObjectWithoutProperties(t *testing.T) {
	schema := NormalizeSchema(&JSONSchema{Type: "object"})
	data, err := schema.ToJSON()
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "object", decoded["type"])
	assert.NotNil(t, schema.Properties)
}

func TestNormalizeSchema_InfersTypes(t *testing.T) {
	schema := NormalizeSchema(&JSONSchema{
		Properties: map[string]*JSONSchema{
			"tables": {Items: &JSONSchema{Enum: []interface{}{"a", "b"}}},
		},
	})
	assert.Equal(t, "object", schema.Type)
	assert.Equal(t, "array", schema.Properties["tables"].Type)
	assert.Equal(t, "string", schema.Properties["tables"].Items.Type)
}

func TestNormalizeSchema_Nil(t *testing.T) {
	assert.Nil(t, NormalizeSchema(nil))
}

func TestValidateParams(t *testing.T) {
	schema := NewObjectSchema("", map[string]*JSONSchema{
		"database": NewStringSchema(""),
		"query":    NewStringSchema("").WithMinLength(1),
		"tables":   NewArraySchema("", NewStringSchema("")),
	}, []string{"database"})

	tests := []struct {
		name   string
		params map[string]interface{}
		valid  bool
	}{
		{"minimal", map[string]interface{}{"database": "sales"}, true},
		{"with tables", map[string]interface{}{"database": "sales", "tables": []interface{}{"a"}}, true},
		{"missing required", map[string]interface{}{}, false},
		{"nil params", nil, false},
		{"wrong type", map[string]interface{}{"database": true}, false},
		{"empty query", map[string]interface{}{"database": "sales", "query": ""}, false},
		{"bad array item", map[string]interface{}{"database": "sales", "tables": []interface{}{1}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParams(schema, tt.params)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, fabric.ErrInvalidArgument)
		})
	}
}

func TestValidateParams_NilSchema(t *testing.T) {
	assert.NoError(t, ValidateParams(nil, map[string]interface{}{"x": 1}))
}
