//go:build integration

// Package testutil starts database containers for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	mysqlImage       = "mysql:8.0.36"
	mysqlDatabase    = "sqlqueue"
	mysqlUser        = "root"
	mysqlPassword    = "secret"
	postgresImage    = "postgres:16-alpine"
	postgresDatabase = "sqlqueue"
	postgresUser     = "postgres"
	postgresPassword = "secret"
	startupTimeout   = 2 * time.Minute
)

// MySQLContainer is a running MySQL server with an open handle.
type MySQLContainer struct {
	Container testcontainers.Container
	DB        *sql.DB
	DSN       string
}

// PostgresContainer is a running PostgreSQL server.
type PostgresContainer struct {
	Container testcontainers.Container
	URL       string
}

// StartMySQLContainer starts MySQL 8 or skips the test when Docker is unavailable.
func StartMySQLContainer(t *testing.T, ctx context.Context) MySQLContainer {
	t.Helper()

	port := nat.Port("3306/tcp")
	dsn := func(host string, port nat.Port) string {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", mysqlUser, mysqlPassword, host, port.Port(), mysqlDatabase)
	}
	req := testcontainers.ContainerRequest{
		Image:        mysqlImage,
		ExposedPorts: []string{string(port)},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": mysqlPassword,
			"MYSQL_DATABASE":      mysqlDatabase,
		},
		WaitingFor: wait.ForSQL(port, "mysql", dsn).WithStartupTimeout(startupTimeout),
	}

	container := start(t, ctx, req)
	host, mappedPort := endpoint(t, ctx, container, port)

	hostDSN := dsn(host, mappedPort)
	db, err := sql.Open("mysql", hostDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	return MySQLContainer{Container: container, DB: db, DSN: hostDSN}
}

// StartPostgresContainer starts PostgreSQL or skips the test when Docker is unavailable.
func StartPostgresContainer(t *testing.T, ctx context.Context) PostgresContainer {
	t.Helper()

	port := nat.Port("5432/tcp")
	url := func(host string, port nat.Port) string {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", postgresUser, postgresPassword, host, port.Port(), postgresDatabase)
	}
	req := testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{string(port)},
		Env: map[string]string{
			"POSTGRES_PASSWORD": postgresPassword,
			"POSTGRES_DB":       postgresDatabase,
		},
		WaitingFor: wait.ForSQL(port, "pgx", url).WithStartupTimeout(startupTimeout),
	}

	container := start(t, ctx, req)
	host, mappedPort := endpoint(t, ctx, container, port)

	return PostgresContainer{Container: container, URL: url(host, mappedPort)}
}

func start(t *testing.T, ctx context.Context, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("start %s container: %v", req.Image, err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	return container
}

func endpoint(t *testing.T, ctx context.Context, container testcontainers.Container, port nat.Port) (string, nat.Port) {
	t.Helper()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("resolve host: %v", err)
	}
	mappedPort, err := container.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("resolve port: %v", err)
	}

	return host, mappedPort
}
