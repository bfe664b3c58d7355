package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrDBRequired is returned when a nil *sql.DB is provided.
	ErrDBRequired = errors.New("sqlqueue mysql: db is required")
	// ErrExecutorRequired is returned when EnqueueTx is called with a nil executor.
	ErrExecutorRequired = errors.New("sqlqueue mysql: executor is required")
	// ErrDSNRequired is returned when Config has no DSN.
	ErrDSNRequired = errors.New("sqlqueue mysql: dsn is required")
	// ErrNameTooLong is returned when the queue name has more than database and table parts.
	ErrNameTooLong = errors.New("sqlqueue mysql: queue name must be table or database.table")
)

const (
	codeTableMissing     = 1146
	codeAccessDenied     = 1142
	codeLockWaitTimeout  = 1205
	codeDeadlock         = 1213
	codeQueryInterrupted = 1317
)

// IsTableMissing reports whether err is ER_NO_SUCH_TABLE, typically an enqueue before Initialize.
func IsTableMissing(err error) bool {
	return hasNumber(err, codeTableMissing)
}

// IsAccessDenied reports whether err is ER_TABLEACCESS_DENIED_ERROR.
func IsAccessDenied(err error) bool {
	return hasNumber(err, codeAccessDenied)
}

// IsDeadlock reports whether err is ER_LOCK_DEADLOCK.
func IsDeadlock(err error) bool {
	return hasNumber(err, codeDeadlock)
}

// IsTransient reports whether err is a deadlock, lock wait timeout or interrupted query.
func IsTransient(err error) bool {
	return hasNumber(err, codeDeadlock) ||
		hasNumber(err, codeLockWaitTimeout) ||
		hasNumber(err, codeQueryInterrupted)
}

func hasNumber(err error, number uint16) bool {
	if err == nil {
		return false
	}

	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == number
}
