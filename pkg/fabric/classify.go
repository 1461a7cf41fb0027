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
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes.
const (
	pgUndefinedTable    = "42P01"
	pgUndefinedColumn   = "42703"
	pgInvalidCatalog    = "3D000"
	pgInvalidAuth       = "28P01"
	pgConnectionFailure = "08"
)

// MySQL server error numbers.
const (
	myNoSuchTable    = 1146
	myBadFieldError  = 1054
	myBadDBError     = 1049
	myAccessDenied   = 1045
	myDBAccessDenied = 1044
)

var namePatterns = map[ErrorKind][]*regexp.Regexp{
	KindNoSuchTable: {
		regexp.MustCompile(`no such table: ([^\s]+)`),
		regexp.MustCompile(`relation "([^"]+)" does not exist`),
		regexp.MustCompile(`[Tt]able '([^']+)' doesn't exist`),
	},
	KindNoSuchColumn: {
		regexp.MustCompile(`no such column: ([^\s]+)`),
		regexp.MustCompile(`column "([^"]+)" does not exist`),
		regexp.MustCompile(`column ([^\s]+) does not exist`),
		regexp.MustCompile(`[Uu]nknown column '([^']+)'`),
	},
}

// ClassifyError converts a driver error into an *Error. Errors that are
// already classified are returned unchanged. Context cancellation is
// returned as is.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	kind, code := classifyDriver(err)
	if kind == KindUnknown {
		kind = InferErrorKind(err.Error())
	}
	if kind == KindUnknown {
		kind = KindDriver
	}

	return &Error{
		Kind:    kind,
		Name:    objectName(kind, err.Error()),
		Message: err.Error(),
		Code:    code,
		Err:     err,
	}
}

func classifyDriver(err error) (ErrorKind, string) {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, mysql.ErrInvalidConn) {
		return KindConnection, ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgKind(pgErr.Code), pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return pgKind(code), code
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		code := strconv.Itoa(int(myErr.Number))
		switch myErr.Number {
		case myNoSuchTable:
			return KindNoSuchTable, code
		case myBadFieldError:
			return KindNoSuchColumn, code
		case myBadDBError, myAccessDenied, myDBAccessDenied:
			return KindConnection, code
		default:
			return KindDriver, code
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindConnection, ""
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return KindConnection, ""
	}

	return KindUnknown, ""
}

func pgKind(code string) ErrorKind {
	switch {
	case code == pgUndefinedTable:
		return KindNoSuchTable
	case code == pgUndefinedColumn:
		return KindNoSuchColumn
	case code == pgInvalidCatalog, code == pgInvalidAuth, strings.HasPrefix(code, pgConnectionFailure):
		return KindConnection
	default:
		return KindDriver
	}
}

// InferErrorKind classifies an error from its message text. Column checks
// run before table checks because column messages often mention the table.
func InferErrorKind(message string) ErrorKind {
	msg := strings.ToLower(message)

	missing := strings.Contains(msg, "not found") ||
		strings.Contains(msg, "does not exist") ||
		strings.Contains(msg, "doesn't exist")

	if strings.Contains(msg, "no such column") || strings.Contains(msg, "unknown column") ||
		(strings.Contains(msg, "column") && missing) {
		return KindNoSuchColumn
	}
	if strings.Contains(msg, "no such table") ||
		((strings.Contains(msg, "table") || strings.Contains(msg, "relation")) && missing) {
		return KindNoSuchTable
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "unable to open database") ||
		strings.Contains(msg, "broken pipe") {
		return KindConnection
	}
	return KindUnknown
}

func objectName(kind ErrorKind, message string) string {
	for _, re := range namePatterns[kind] {
		if m := re.FindStringSubmatch(message); len(m) == 2 {
			return m[1]
		}
	}
	return ""
}
