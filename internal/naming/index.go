// Package naming derives identifiers for schema objects that belong to a queue table.
package naming

import (
	"fmt"
	"hash/fnv"
)

// MaxIdentifierBytes is the longest identifier PostgreSQL keeps without truncating.
const MaxIdentifierBytes = 63

// IndexName returns the name of the index on column of table. Indexes live in
// the schema of their table, so table is the unqualified name.
//
// The name ends with a hash of table, so tables sharing a long prefix, or named
// like another table's index, get distinct indexes. The table part is shortened
// to keep the result within MaxIdentifierBytes.
func IndexName(table, column string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(table))
	suffix := fmt.Sprintf("_%s_%08x", column, h.Sum32())

	if limit := MaxIdentifierBytes - len(suffix); len(table) > limit {
		table = table[:max(limit, 0)]
	}

	return table + suffix
}
