package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/velmie/sqlqueue/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sqlqueue.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, config.Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
driver = "postgres"
queue = "jobs.orders"
log_level = "debug"

[postgres]
conn_url = "postgres://app@localhost/app"
max_conns = 4
max_conn_lifetime = "1h"

[poller]
workers = 8
poll_interval = "250ms"
handler_timeout = "5s"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.DriverPostgres, cfg.Driver)
	require.Equal(t, "jobs.orders", cfg.Queue)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, "postgres://app@localhost/app", cfg.DSN())
	require.Equal(t, int32(4), cfg.Postgres.MaxConns)
	require.Equal(t, time.Hour, cfg.Postgres.MaxConnLifetime)
	require.Equal(t, time.Minute, cfg.Postgres.HealthCheckPeriod)
	require.Equal(t, 8, cfg.Poller.Workers)
	require.Equal(t, 250*time.Millisecond, cfg.Poller.PollInterval)
	require.Equal(t, 5*time.Second, cfg.Poller.HandlerTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
driver = "sqlite"

[sqlite]
path = "from-file.db"
busy_timeout = "1s"
`)
	t.Setenv("SQLQUEUE_DRIVER", "mysql")
	t.Setenv("MYSQL_DSN", "root:secret@tcp(localhost:3306)/app")
	t.Setenv("SQLITE_BUSY_TIMEOUT", "2s")
	t.Setenv("SQLQUEUE_WORKERS", "3")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, config.DriverMySQL, cfg.Driver)
	require.Equal(t, "root:secret@tcp(localhost:3306)/app", cfg.DSN())
	require.Equal(t, "from-file.db", cfg.SQLite.Path)
	require.Equal(t, 2*time.Second, cfg.SQLite.BusyTimeout)
	require.Equal(t, 3, cfg.Poller.Workers)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, config.ErrReadConfig)

	_, err = config.Load(writeConfig(t, `unknown_key = true`))
	require.ErrorIs(t, err, config.ErrReadConfig)

	_, err = config.Load(writeConfig(t, "[poller]\npoll_interval = \"soon\"\n"))
	require.ErrorIs(t, err, config.ErrReadConfig)

	t.Setenv("SQLQUEUE_WORKERS", "many")
	_, err = config.Load("")
	require.ErrorIs(t, err, config.ErrParseEnv)
}

func TestSetDSN(t *testing.T) {
	for _, driver := range []string{config.DriverPostgres, config.DriverMySQL, config.DriverSQLite} {
		cfg := config.Default()
		cfg.Driver = driver
		cfg.SetDSN("dsn-" + driver)
		require.Equal(t, "dsn-"+driver, cfg.DSN())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "driver", mutate: func(c *config.Config) { c.Driver = "oracle" }},
		{name: "queue", mutate: func(c *config.Config) { c.Queue = "bad name" }},
		{name: "dsn", mutate: func(c *config.Config) { c.Driver = config.DriverPostgres }},
		{name: "workers", mutate: func(c *config.Config) { c.Poller.Workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), config.ErrInvalidConfig)
		})
	}
}
