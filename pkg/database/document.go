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
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teradata-labs/chatdb/pkg/fabric"
)

// Document is the text form of one result row handed to the agent.
type Document struct {
	Text string `json:"text"`
	// Notice marks a document that describes the result instead of holding
	// a row.
	Notice bool `json:"notice,omitempty"`
}

// TruncationNotice is the trailing document of a result cut off after rows
// rows.
func TruncationNotice(rows int) Document {
	return Document{
		Text:   fmt.Sprintf("(result truncated: only the first %d rows are shown; narrow the query or aggregate to see the rest)", rows),
		Notice: true,
	}
}

// RowDocument flattens row into a single line of its column values joined
// by ", ".
func RowDocument(row fabric.Row) Document {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = FormatValue(v)
	}
	return Document{Text: strings.Join(parts, ", ")}
}

// FormatValue returns the string form of a scanned column value.
func FormatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case time.Time:
		if val.Nanosecond() == 0 {
			return val.Format(time.DateTime)
		}
		return val.Format("2006-01-02 15:04:05.999999")
	default:
		return fmt.Sprint(val)
	}
}
