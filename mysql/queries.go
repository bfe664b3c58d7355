package mysql

import "fmt"

type queries struct {
	createTable string
	insert      string
	claim       string
	remove      string
	count       string
}

func newQueries(parts []string) queries {
	table := quoteName(parts)

	return queries{
		createTable: fmt.Sprintf(schemaTemplate, table),
		insert:      fmt.Sprintf("INSERT INTO %s (payload) VALUES (?)", table),
		claim: fmt.Sprintf(
			"SELECT id, inserted_at, payload FROM %s ORDER BY inserted_at ASC, id ASC LIMIT 1 FOR UPDATE SKIP LOCKED",
			table,
		),
		remove: fmt.Sprintf("DELETE FROM %s WHERE id = ?", table),
		count:  fmt.Sprintf("SELECT COUNT(*) FROM %s", table),
	}
}
