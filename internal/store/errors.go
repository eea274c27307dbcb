package store

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrStoreUnreachable means the resume position could not be read.
	ErrStoreUnreachable = errors.New("destination store unreachable")

	// ErrConnectivity wraps every storage failure other than a duplicate key.
	ErrConnectivity = errors.New("destination store connectivity failure")
)

const pgUniqueViolation = "23505"

// DuplicateKeyError reports an insert rejected because the id already exists.
type DuplicateKeyError struct {
	ID   string
	Code string
	Err  error
}

func (e *DuplicateKeyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("duplicate key %q: %v", e.ID, e.Err)
	}
	return fmt.Sprintf("duplicate key %q", e.ID)
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err is a unique/primary key violation
// from either supported driver.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}

// NativeCode returns the driver's own error code and message, or empty
// strings when err does not come from a driver.
func NativeCode(err error) (code, message string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return strconv.Itoa(liteErr.Code()), liteErr.Error()
	}
	return "", ""
}
