package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/velmie/sqlqueue"
)

const (
	timeZoneParam = "time_zone"
	utcOffset     = "'+00:00'"
)

// Config describes the connection pool. Zero pool values keep the database/sql defaults.
type Config struct {
	DSN             string        `env:"MYSQL_DSN"`                // DSN is a go-sql-driver/mysql data source name.
	MaxOpenConns    int           `env:"MYSQL_MAX_OPEN_CONNS"`     // MaxOpenConns limits open connections.
	MaxIdleConns    int           `env:"MYSQL_MAX_IDLE_CONNS"`     // MaxIdleConns limits idle connections.
	ConnMaxLifetime time.Duration `env:"MYSQL_CONN_MAX_LIFETIME"`  // ConnMaxLifetime recycles older connections.
	ConnMaxIdleTime time.Duration `env:"MYSQL_CONN_MAX_IDLE_TIME"` // ConnMaxIdleTime closes connections idle for longer.
}

// Connect opens a pool and verifies it with a ping. Failures are reported as sqlqueue.ErrConnection.
//
// The DSN is rewritten to parse timestamps and to run the session in UTC, unless it
// sets time_zone itself, so inserted_at scans into time.Time in UTC.
func Connect(ctx context.Context, cfg Config) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "connect", "", ErrDSNRequired)
	}

	driverConfig, err := parseDSN(cfg.DSN)
	if err != nil {
		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "parse dsn", "", err)
	}

	connector, err := mysql.NewConnector(driverConfig)
	if err != nil {
		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "connect", "", err)
	}

	db := sql.OpenDB(connector)
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()

		return nil, sqlqueue.NewError(sqlqueue.ErrConnection, "ping", "", err)
	}

	return db, nil
}

// parseDSN reads dsn and pins the session to UTC. TIMESTAMP columns are
// converted to the session time_zone on read, and Loc only tells the driver how
// to interpret the returned text.
func parseDSN(dsn string) (*mysql.Config, error) {
	driverConfig, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	driverConfig.ParseTime = true
	if driverConfig.Loc == nil {
		driverConfig.Loc = time.UTC
	}
	if driverConfig.Params == nil {
		driverConfig.Params = map[string]string{}
	}
	if _, ok := driverConfig.Params[timeZoneParam]; !ok {
		driverConfig.Params[timeZoneParam] = utcOffset
	}

	return driverConfig, nil
}
