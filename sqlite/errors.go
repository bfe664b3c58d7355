package sqlite

import (
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrDBRequired is returned when a nil *sql.DB is provided.
	ErrDBRequired = errors.New("sqlqueue sqlite: db is required")
	// ErrExecutorRequired is returned when EnqueueTx is called with a nil executor.
	ErrExecutorRequired = errors.New("sqlqueue sqlite: executor is required")
	// ErrPathRequired is returned when Config has no database path.
	ErrPathRequired = errors.New("sqlqueue sqlite: path is required")
	// ErrNameTooLong is returned when the queue name has more than schema and table parts.
	ErrNameTooLong = errors.New("sqlqueue sqlite: queue name must be table or schema.table")
)

// IsBusy reports whether err is SQLITE_BUSY or one of its extended codes.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_BUSY {
		return true
	}

	return strings.Contains(err.Error(), "database is locked")
}

// IsTableMissing reports whether err was caused by a missing queue table.
func IsTableMissing(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
