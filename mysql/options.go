package mysql

import "github.com/velmie/sqlqueue"

type storeConfig struct {
	logger sqlqueue.Logger
}

func (c storeConfig) withDefaults() storeConfig {
	if c.logger == nil {
		c.logger = sqlqueue.NopLogger{}
	}

	return c
}

// Option configures the MySQL store.
type Option func(*storeConfig)

// WithLogger sets the store logger.
func WithLogger(logger sqlqueue.Logger) Option {
	return func(c *storeConfig) {
		c.logger = logger
	}
}
