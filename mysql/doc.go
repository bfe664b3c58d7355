// Package mysql provides a MySQL 8.0.13+ sqlqueue store on database/sql.
//
// Dequeue runs one short transaction:
//   - READ COMMITTED isolation (to avoid gap locks)
//   - SELECT ... ORDER BY inserted_at, id LIMIT 1 FOR UPDATE SKIP LOCKED
//   - DELETE ... WHERE id = ?
//
// Identity and insertion time are column defaults, UUID_TO_BIN(UUID(), 1) and
// CURRENT_TIMESTAMP(6). MySQL has no CREATE INDEX IF NOT EXISTS, so the ordering
// index is declared inline in the table definition. See Schema.
package mysql
