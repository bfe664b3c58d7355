// Package postgres provides a PostgreSQL-backed sqlqueue store built on pgx/v5.
//
// Dequeue runs a single statement inside a short transaction:
//
//	DELETE FROM queue WHERE id IN (
//		SELECT id FROM queue ORDER BY inserted_at, id LIMIT 1 FOR UPDATE SKIP LOCKED
//	) RETURNING id, inserted_at, payload
//
// Rows locked by a concurrent claim are skipped, so consumers never block each other
// and never receive the same message. Identity (gen_random_uuid) and insertion time
// (clock_timestamp) are column defaults; gen_random_uuid requires PostgreSQL 13 or newer.
package postgres
