// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// the program service and handlers to distinguish between different
// failure scenarios without inspecting driver specific errors.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrDuplicate is returned when an INSERT or UPDATE violates a unique
// constraint, e.g. a second item with the same position in a program or
// a share token that is already taken.
var ErrDuplicate = errors.New("duplicate key")

// ErrProgramNotFound is returned when a program lookup fails.
var ErrProgramNotFound = errors.New("program not found")

// ErrItemNotFound is returned when a program item lookup fails.
var ErrItemNotFound = errors.New("program item not found")

// ErrUserNotFound is returned when a user lookup fails.
var ErrUserNotFound = errors.New("user not found")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a unique constraint violation in
// either supported dialect.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == mysqlDuplicateEntry
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isStaleSnapshot reports whether a SQLite write was refused because
// another connection committed after this transaction took its read
// snapshot.
func isStaleSnapshot(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_BUSY_SNAPSHOT
}
