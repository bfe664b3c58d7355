package config

import "time"

// Duration decodes TOML strings such as "250ms" or "5m".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type fileConfig struct {
	Driver    string       `toml:"driver"`
	Queue     string       `toml:"queue"`
	LogLevel  string       `toml:"log_level"`
	LogFormat string       `toml:"log_format"`
	Postgres  postgresFile `toml:"postgres"`
	MySQL     mysqlFile    `toml:"mysql"`
	SQLite    sqliteFile   `toml:"sqlite"`
	Poller    pollerFile   `toml:"poller"`
}

type postgresFile struct {
	ConnURL           string   `toml:"conn_url"`
	MaxConns          int32    `toml:"max_conns"`
	MinConns          int32    `toml:"min_conns"`
	HealthCheckPeriod Duration `toml:"health_check_period"`
	MaxConnIdleTime   Duration `toml:"max_conn_idle_time"`
	MaxConnLifetime   Duration `toml:"max_conn_lifetime"`
}

type mysqlFile struct {
	DSN             string   `toml:"dsn"`
	MaxOpenConns    int      `toml:"max_open_conns"`
	MaxIdleConns    int      `toml:"max_idle_conns"`
	ConnMaxLifetime Duration `toml:"conn_max_lifetime"`
	ConnMaxIdleTime Duration `toml:"conn_max_idle_time"`
}

type sqliteFile struct {
	Path         string   `toml:"path"`
	BusyTimeout  Duration `toml:"busy_timeout"`
	MaxOpenConns int      `toml:"max_open_conns"`
}

type pollerFile struct {
	Workers         int      `toml:"workers"`
	PollInterval    Duration `toml:"poll_interval"`
	HandlerTimeout  Duration `toml:"handler_timeout"`
	PendingInterval Duration `toml:"pending_interval"`
}

// apply copies the values present in the file over cfg.
func (f fileConfig) apply(cfg *Config) {
	setString(&cfg.Driver, f.Driver)
	setString(&cfg.Queue, f.Queue)
	setString(&cfg.LogLevel, f.LogLevel)
	setString(&cfg.LogFormat, f.LogFormat)

	setString(&cfg.Postgres.ConnectionString, f.Postgres.ConnURL)
	setNumber(&cfg.Postgres.MaxConns, f.Postgres.MaxConns)
	setNumber(&cfg.Postgres.MinConns, f.Postgres.MinConns)
	setNumber(&cfg.Postgres.HealthCheckPeriod, f.Postgres.HealthCheckPeriod.Duration)
	setNumber(&cfg.Postgres.MaxConnIdleTime, f.Postgres.MaxConnIdleTime.Duration)
	setNumber(&cfg.Postgres.MaxConnLifetime, f.Postgres.MaxConnLifetime.Duration)

	setString(&cfg.MySQL.DSN, f.MySQL.DSN)
	setNumber(&cfg.MySQL.MaxOpenConns, f.MySQL.MaxOpenConns)
	setNumber(&cfg.MySQL.MaxIdleConns, f.MySQL.MaxIdleConns)
	setNumber(&cfg.MySQL.ConnMaxLifetime, f.MySQL.ConnMaxLifetime.Duration)
	setNumber(&cfg.MySQL.ConnMaxIdleTime, f.MySQL.ConnMaxIdleTime.Duration)

	setString(&cfg.SQLite.Path, f.SQLite.Path)
	setNumber(&cfg.SQLite.BusyTimeout, f.SQLite.BusyTimeout.Duration)
	setNumber(&cfg.SQLite.MaxOpenConns, f.SQLite.MaxOpenConns)

	setNumber(&cfg.Poller.Workers, f.Poller.Workers)
	setNumber(&cfg.Poller.PollInterval, f.Poller.PollInterval.Duration)
	setNumber(&cfg.Poller.HandlerTimeout, f.Poller.HandlerTimeout.Duration)
	setNumber(&cfg.Poller.PendingInterval, f.Poller.PendingInterval.Duration)
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setNumber[T int | int32 | time.Duration](dst *T, value T) {
	if value != 0 {
		*dst = value
	}
}
