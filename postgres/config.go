package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velmie/sqlqueue"
)

// Config describes the connection pool. Zero values keep the pgxpool defaults.
type Config struct {
	ConnectionString  string        `env:"PG_CONN_URL"`           // ConnectionString is a libpq style URL or DSN.
	MaxConns          int32         `env:"PG_MAX_CONNS"`          // MaxConns is the maximum pool size.
	MinConns          int32         `env:"PG_MIN_CONNS"`          // MinConns is the number of connections kept open.
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD"` // HealthCheckPeriod is the period between idle connection checks.
	MaxConnIdleTime   time.Duration `env:"PG_MAX_CONN_IDLE_TIME"` // MaxConnIdleTime closes connections idle for longer.
	MaxConnLifetime   time.Duration `env:"PG_MAX_CONN_LIFETIME"`  // MaxConnLifetime recycles connections older than this.
}

// Connect opens a pool and verifies it with a ping. Failures are reported as sqlqueue.ErrConnection.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.ConnectionString == "" {
		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "connect", "", ErrConnectionStringRequired)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "parse config", "", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "connect", "", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "ping", "", err)
	}

	return pool, nil
}

// Healthcheck returns a closure suitable for readiness probes.
func Healthcheck(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return sqlqueue.NewError(sqlqueue.ErrConnection, "ping", "", err)
		}

		return nil
	}
}
