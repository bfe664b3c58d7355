package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/velmie/sqlqueue"
	"github.com/velmie/sqlqueue/internal/config"
	"github.com/velmie/sqlqueue/mysql"
	"github.com/velmie/sqlqueue/postgres"
	"github.com/velmie/sqlqueue/sqlite"
)

type rootFlags struct {
	config   string
	driver   string
	dsn      string
	queue    string
	logLevel string
}

// queueStore is the surface shared by every backend store.
type queueStore interface {
	sqlqueue.Queue
	sqlqueue.Counter
	Name() string
	Close() error
}

type commandContext struct {
	flags *rootFlags

	configOnce sync.Once
	config     config.Config
	configErr  error
	logger     *slog.Logger
}

func newCommandContext(flags *rootFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig(cmd *cobra.Command) (config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(c.flags.config)
		if err != nil {
			c.configErr = err
			return
		}
		if driver := strings.TrimSpace(c.flags.driver); driver != "" {
			cfg.Driver = driver
		}
		if dsn := strings.TrimSpace(c.flags.dsn); dsn != "" {
			cfg.SetDSN(dsn)
		}
		if queue := strings.TrimSpace(c.flags.queue); queue != "" {
			cfg.Queue = queue
		}
		if level := strings.TrimSpace(c.flags.logLevel); level != "" {
			cfg.LogLevel = level
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}

		logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

// openQueue connects to the configured backend and binds the named queue.
func (c *commandContext) openQueue(ctx context.Context, name string) (queueStore, error) {
	cfg := c.config
	logger := sqlqueue.NewSlogLogger(c.logger)

	switch cfg.Driver {
	case config.DriverPostgres:
		return opened(postgres.Open(ctx, cfg.Postgres, name, postgres.WithLogger(logger)))
	case config.DriverMySQL:
		return opened(mysql.Open(ctx, cfg.MySQL, name, mysql.WithLogger(logger)))
	case config.DriverSQLite:
		return opened(sqlite.Open(ctx, cfg.SQLite, name, sqlite.WithLogger(logger)))
	default:
		return nil, fmt.Errorf("%w: unsupported driver %q", config.ErrInvalidConfig, cfg.Driver)
	}
}

// opened keeps a failed Open from becoming a non-nil interface holding a nil store.
func opened[S queueStore](store S, err error) (queueStore, error) {
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (c *commandContext) withQueue(cmd *cobra.Command, fn func(queueStore) error) error {
	return c.withNamedQueue(cmd, c.config.Queue, fn)
}

func (c *commandContext) withNamedQueue(cmd *cobra.Command, name string, fn func(queueStore) error) error {
	store, err := c.openQueue(cmd.Context(), name)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: log level %q", config.ErrInvalidConfig, level)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: log format %q", config.ErrInvalidConfig, format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
