package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDBRequired is returned when a nil pool is provided.
	ErrDBRequired = errors.New("sqlqueue postgres: db is required")
	// ErrExecutorRequired is returned when EnqueueTx is called with a nil executor.
	ErrExecutorRequired = errors.New("sqlqueue postgres: executor is required")
	// ErrConnectionStringRequired is returned when Config has no connection string.
	ErrConnectionStringRequired = errors.New("sqlqueue postgres: connection string is required")
	// ErrNameTooLong is returned when the queue name has more than schema and table parts.
	ErrNameTooLong = errors.New("sqlqueue postgres: queue name must be table or schema.table")
)

const (
	codeUndefinedTable        = "42P01"
	codeInsufficientPrivilege = "42501"
	codeSerializationFailure  = "40001"
	codeDeadlockDetected      = "40P01"
	codeLockNotAvailable      = "55P03"
	codeQueryCanceled         = "57014"
)

// IsUndefinedTable reports whether err is SQLSTATE 42P01, typically an enqueue before Initialize.
func IsUndefinedTable(err error) bool {
	return hasCode(err, codeUndefinedTable)
}

// IsInsufficientPrivilege reports whether err is SQLSTATE 42501.
func IsInsufficientPrivilege(err error) bool {
	return hasCode(err, codeInsufficientPrivilege)
}

// IsTransient reports whether err is a deadlock, serialization, lock or statement timeout failure
// that a caller may reasonably retry.
func IsTransient(err error) bool {
	return hasCode(err, codeSerializationFailure) ||
		hasCode(err, codeDeadlockDetected) ||
		hasCode(err, codeLockNotAvailable) ||
		hasCode(err, codeQueryCanceled)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
