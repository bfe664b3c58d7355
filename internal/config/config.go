package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/velmie/sqlqueue"
	"github.com/velmie/sqlqueue/mysql"
	"github.com/velmie/sqlqueue/postgres"
	"github.com/velmie/sqlqueue/sqlite"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

var (
	// ErrReadConfig is returned when the configuration file cannot be read or decoded.
	ErrReadConfig = errors.New("sqlqueue config: read failed")
	// ErrParseEnv is returned when environment overrides cannot be parsed.
	ErrParseEnv = errors.New("sqlqueue config: environment parse failed")
	// ErrInvalidConfig is returned when validation fails.
	ErrInvalidConfig = errors.New("sqlqueue config: invalid configuration")
)

// Config is the resolved CLI configuration.
type Config struct {
	Driver    string `env:"SQLQUEUE_DRIVER"`
	Queue     string `env:"SQLQUEUE_QUEUE"`
	LogLevel  string `env:"SQLQUEUE_LOG_LEVEL"`
	LogFormat string `env:"SQLQUEUE_LOG_FORMAT"`

	Postgres postgres.Config
	MySQL    mysql.Config
	SQLite   sqlite.Config
	Poller   Poller
}

// Poller holds consumer loop settings.
type Poller struct {
	Workers         int           `env:"SQLQUEUE_WORKERS"`
	PollInterval    time.Duration `env:"SQLQUEUE_POLL_INTERVAL"`
	HandlerTimeout  time.Duration `env:"SQLQUEUE_HANDLER_TIMEOUT"`
	PendingInterval time.Duration `env:"SQLQUEUE_PENDING_INTERVAL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Driver:    DriverSQLite,
		Queue:     "queue",
		LogLevel:  "info",
		LogFormat: "text",
		Postgres: postgres.Config{
			MaxConns:          10,
			HealthCheckPeriod: time.Minute,
			MaxConnIdleTime:   10 * time.Minute,
			MaxConnLifetime:   30 * time.Minute,
		},
		MySQL: mysql.Config{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		SQLite: sqlite.Config{
			Path:        "sqlqueue.db",
			BusyTimeout: 5 * time.Second,
		},
		Poller: Poller{
			Workers:      1,
			PollInterval: 100 * time.Millisecond,
		},
	}
}

// Load resolves configuration from Default, the TOML file at path (skipped when
// empty) and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrReadConfig, err)
		}

		var file fileConfig
		decoder := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
		if err := decoder.Decode(&file); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrReadConfig, path, err)
		}
		file.apply(&cfg)
	}

	// the .env file is optional
	_ = godotenv.Load()
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseEnv, err)
	}

	return cfg, nil
}

// SetDSN stores dsn in the section of the selected driver.
func (c *Config) SetDSN(dsn string) {
	switch c.Driver {
	case DriverPostgres:
		c.Postgres.ConnectionString = dsn
	case DriverMySQL:
		c.MySQL.DSN = dsn
	case DriverSQLite:
		c.SQLite.Path = dsn
	}
}

// DSN returns the data source of the selected driver.
func (c Config) DSN() string {
	switch c.Driver {
	case DriverPostgres:
		return c.Postgres.ConnectionString
	case DriverMySQL:
		return c.MySQL.DSN
	case DriverSQLite:
		return c.SQLite.Path
	default:
		return ""
	}
}

// Validate checks the driver, queue name and data source.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return fmt.Errorf("%w: unsupported driver %q", ErrInvalidConfig, c.Driver)
	}
	if _, err := sqlqueue.ParseName(c.Queue); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.DSN() == "" {
		return fmt.Errorf("%w: %s data source is required", ErrInvalidConfig, c.Driver)
	}
	if c.Poller.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}

	return nil
}
