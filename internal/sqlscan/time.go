// Package sqlscan holds database/sql scanners shared by the database/sql backed stores.
package sqlscan

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidTime is returned when a column cannot be decoded as a timestamp.
var ErrInvalidTime = errors.New("sqlqueue: invalid timestamp value")

const layout = "2006-01-02 15:04:05"

// Time returns a scanner that stores a timestamp column into dest.
//
// Drivers return timestamps as time.Time, or as text when time parsing is disabled.
// Text values use the "YYYY-MM-DD HH:MM:SS[.fraction]" layout and are read as UTC.
func Time(dest *time.Time) sql.Scanner {
	return timeScanner{dest: dest}
}

type timeScanner struct {
	dest *time.Time
}

func (s timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*s.dest = v
	case []byte:
		return s.parse(string(v))
	case string:
		return s.parse(v)
	default:
		return fmt.Errorf("%w: %T", ErrInvalidTime, src)
	}

	return nil
}

func (s timeScanner) parse(value string) error {
	parsed, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTime, err)
	}
	*s.dest = parsed

	return nil
}
