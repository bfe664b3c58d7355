package sqlite

import (
	"fmt"
	"strings"

	"github.com/velmie/sqlqueue/internal/naming"
)

const (
	schemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	id BLOB NOT NULL PRIMARY KEY DEFAULT (randomblob(16)),
	inserted_at TEXT NOT NULL DEFAULT (strftime('%%Y-%%m-%%d %%H:%%M:%%f', 'now')),
	payload BLOB NULL
)`
	indexTemplate = `CREATE INDEX IF NOT EXISTS %s ON %s (inserted_at)`
	indexColumn   = "inserted_at"
)

type queries struct {
	createTable string
	createIndex string
	insert      string
	dequeue     string
	count       string
}

// newQueries builds the statements for a table or schema.table name. SQLite puts the
// schema qualifier on the index name and expects the indexed table unqualified.
func newQueries(parts []string) queries {
	table := quote(parts...)
	last := parts[len(parts)-1]
	indexParts := append(append([]string{}, parts[:len(parts)-1]...), naming.IndexName(last, indexColumn))

	return queries{
		createTable: fmt.Sprintf(schemaTemplate, table),
		createIndex: fmt.Sprintf(indexTemplate, quote(indexParts...), quote(last)),
		insert:      fmt.Sprintf("INSERT INTO %s (payload) VALUES (?)", table),
		dequeue: fmt.Sprintf(
			"DELETE FROM %s WHERE rowid IN ("+
				"SELECT rowid FROM %s ORDER BY inserted_at ASC, rowid ASC LIMIT 1"+
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

func quote(parts ...string) string {
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = `"` + part + `"`
	}

	return strings.Join(quoted, ".")
}
