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
package fabric

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind distinguishes the failures a tool call can surface.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNoSuchDatabase
	KindNoSuchTable
	KindNoSuchColumn
	// KindDriver is any other failure reported by the database while
	// executing a statement.
	KindDriver
	KindInvalidArgument
	// KindConnection covers failures to reach the database at all.
	KindConnection
)

func (k ErrorKind) String() string {
	switch k {
	case KindNoSuchDatabase:
		return "NoSuchDatabase"
	case KindNoSuchTable:
		return "NoSuchTable"
	case KindNoSuchColumn:
		return "NoSuchColumn"
	case KindDriver:
		return "DatabaseDriverError"
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindConnection:
		return "ConnectionError"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrNoSuchDatabase  = &Error{Kind: KindNoSuchDatabase}
	ErrNoSuchTable     = &Error{Kind: KindNoSuchTable}
	ErrNoSuchColumn    = &Error{Kind: KindNoSuchColumn}
	ErrDriver          = &Error{Kind: KindDriver}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrConnection      = &Error{Kind: KindConnection}
)

// Error is a classified database or tool failure.
type Error struct {
	Kind ErrorKind
	// Name is the object the failure refers to (database, table or column)
	// when it is known.
	Name    string
	Message string
	// Code is the driver's SQLSTATE or error number, if any.
	Code string
	// Err is the underlying driver error.
	Err error
	// Suggestions lists close matches for an unknown Name.
	Suggestions []string
}

func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	case e.Name != "":
		fmt.Fprintf(&b, "%s: %s", e.Kind, e.Name)
	default:
		b.WriteString(e.Kind.String())
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean: %s?)", strings.Join(e.Suggestions, ", "))
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Name == "" && t.Err == nil
}

// DriverType is the type name of the underlying driver error, used when
// reporting a DatabaseDriverError to users.
func (e *Error) DriverType() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", e.Err), "*")
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) ErrorKind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// NoSuchDatabase builds the error returned for an unregistered database name.
func NoSuchDatabase(name string, suggestions ...string) *Error {
	return &Error{
		Kind:        KindNoSuchDatabase,
		Name:        name,
		Message:     fmt.Sprintf("database '%s' does not exist", name),
		Suggestions: suggestions,
	}
}

// NoSuchTable builds the error returned for an unknown table.
func NoSuchTable(name string) *Error {
	return &Error{
		Kind:    KindNoSuchTable,
		Name:    name,
		Message: fmt.Sprintf("table '%s' does not exist", name),
	}
}

// InvalidArgument builds an argument validation error.
func InvalidArgument(format string, args ...interface{}) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Message: fmt.Sprintf(format, args...),
	}
}
