package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/velmie/sqlqueue/internal/naming"
)

const (
	schemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	id UUID NOT NULL DEFAULT gen_random_uuid(),
	inserted_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
	payload BYTEA NULL,
	PRIMARY KEY (id)
)`
	indexTemplate = `CREATE INDEX IF NOT EXISTS %s ON %s (inserted_at, id)`
	indexColumn   = "inserted_at"
)

type queries struct {
	lock        string
	createTable string
	createIndex string
	insert      string
	dequeue     string
	count       string
}

func newQueries(parts []string) queries {
	table := pgx.Identifier(parts).Sanitize()
	index := pgx.Identifier{naming.IndexName(parts[len(parts)-1], indexColumn)}.Sanitize()

	return queries{
		lock:        "SELECT pg_advisory_xact_lock(hashtext($1))",
		createTable: fmt.Sprintf(schemaTemplate, table),
		createIndex: fmt.Sprintf(indexTemplate, index, table),
		insert:      fmt.Sprintf("INSERT INTO %s (payload) VALUES ($1)", table),
		dequeue: fmt.Sprintf(
			"DELETE FROM %s WHERE id IN ("+
				"SELECT id FROM %s ORDER BY inserted_at ASC, id ASC LIMIT 1 FOR UPDATE SKIP LOCKED"+
				") RETURNING id, inserted_at, payload",
			table,
			table,
		),
		count: fmt.Sprintf("SELECT COUNT(*) FROM %s", table),
	}
}

// Schema returns the DDL statements Initialize runs for the named queue.
func Schema(name string) ([]string, error) {
	parts, err := parseName(name)
	if err != nil {
		return nil, err
	}
	q := newQueries(parts)

	return []string{q.createTable, q.createIndex}, nil
}
