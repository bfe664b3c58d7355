package sqlite

import (
	"time"

	"github.com/velmie/sqlqueue"
)

type storeConfig struct {
	logger      sqlqueue.Logger
	busyTimeout time.Duration
}

func (c storeConfig) withDefaults() storeConfig {
	if c.logger == nil {
		c.logger = sqlqueue.NopLogger{}
	}
	if c.busyTimeout <= 0 {
		c.busyTimeout = defaultBusyTimeout
	}

	return c
}

// Option configures the SQLite store.
type Option func(*storeConfig)

// WithLogger sets the store logger.
func WithLogger(logger sqlqueue.Logger) Option {
	return func(c *storeConfig) {
		c.logger = logger
	}
}

// WithBusyTimeout bounds how long a store operation waits for the database
// write lock. It is applied to each connection the store uses, five seconds
// when unset.
func WithBusyTimeout(timeout time.Duration) Option {
	return func(c *storeConfig) {
		c.busyTimeout = timeout
	}
}
