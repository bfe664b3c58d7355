package mysql

import (
	"fmt"
	"strings"
)

const schemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	id BINARY(16) NOT NULL DEFAULT (UUID_TO_BIN(UUID(), 1)),
	inserted_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	payload LONGBLOB NULL,
	PRIMARY KEY (id),
	INDEX idx_inserted_at (inserted_at, id)
)`

// Schema returns the DDL statement Initialize runs for the named queue.
func Schema(name string) (string, error) {
	parts, err := parseName(name)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(schemaTemplate, quoteName(parts)), nil
}

func quoteName(parts []string) string {
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = "`" + part + "`"
	}

	return strings.Join(quoted, ".")
}
