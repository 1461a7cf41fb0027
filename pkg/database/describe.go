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
	"strings"

	"github.com/teradata-labs/chatdb/pkg/fabric"
)

// renderCreateTable renders schema as a CREATE TABLE statement.
func renderCreateTable(schema *fabric.Schema) string {
	var lines []string
	var primaryKey []string

	for _, f := range schema.Fields {
		line := "\t" + f.Name
		if f.Type != "" {
			line += " " + f.Type
		}
		if !f.Nullable {
			line += " NOT NULL"
		}
		if f.Default != nil {
			line += " DEFAULT " + *f.Default
		}
		lines = append(lines, line)
		if f.PrimaryKey {
			primaryKey = append(primaryKey, f.Name)
		}
	}
	if len(primaryKey) > 0 {
		lines = append(lines, fmt.Sprintf("\tPRIMARY KEY (%s)", strings.Join(primaryKey, ", ")))
	}
	for _, f := range schema.Fields {
		if fk := f.ForeignKey; fk != nil {
			ref := fk.ReferencedTable
			if fk.ReferencedColumn != "" {
				ref += " (" + fk.ReferencedColumn + ")"
			}
			lines = append(lines, fmt.Sprintf("\tFOREIGN KEY (%s) REFERENCES %s", f.Name, ref))
		}
	}

	return fmt.Sprintf("CREATE TABLE %s (\n%s\n)", schema.Name, strings.Join(lines, ",\n"))
}
