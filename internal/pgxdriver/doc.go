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

// Package pgxdriver opens PostgreSQL databases through pgx/v5 exposed as a
// database/sql handle, so PostgreSQL backends share the generic SQL code path
// while keeping pgx's connection handling and typed errors.
//
// Usage:
//
//	db, err := pgxdriver.Open(dsn, pgxdriver.Options{Schema: "analytics"})
//	defer db.Close()
package pgxdriver
