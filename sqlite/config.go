package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/velmie/sqlqueue"
)

const (
	driverName         = "sqlite"
	memoryPath         = ":memory:"
	defaultBusyTimeout = 5 * time.Second
)

// Config describes the database file and the handle.
type Config struct {
	Path         string        `env:"SQLITE_PATH"`           // Path is the database file, or ":memory:".
	BusyTimeout  time.Duration `env:"SQLITE_BUSY_TIMEOUT"`   // BusyTimeout bounds the wait for the database lock, five seconds when zero.
	MaxOpenConns int           `env:"SQLITE_MAX_OPEN_CONNS"` // MaxOpenConns limits open connections, zero means unlimited.
}

// DSN returns the modernc.org/sqlite data source name for cfg.
func (c Config) DSN() string {
	timeout := c.BusyTimeout
	if timeout <= 0 {
		timeout = defaultBusyTimeout
	}

	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout.Milliseconds()))
	if c.Path != memoryPath {
		params.Add("_pragma", "journal_mode(WAL)")
	}
	params.Set("_txlock", "immediate")

	sep := "?"
	if strings.Contains(c.Path, "?") {
		sep = "&"
	}

	return c.Path + sep + params.Encode()
}

// Connect opens the database and verifies it with a ping. Failures are reported as sqlqueue.ErrConnection.
//
// An in-memory database exists per connection, so ":memory:" is limited to one connection.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "connect", "", ErrPathRequired)
	}

	db, err := sql.Open(driverName, cfg.DSN())
	if err != nil {
		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "connect", "", err)
	}
	switch {
	case cfg.Path == memoryPath:
		db.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "ping", "", err)
	}

	return db, nil
}
