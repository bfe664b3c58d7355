// Package sqlite provides an embedded sqlqueue store on modernc.org/sqlite.
//
// SQLite has no row locks, so there is nothing to skip: writers are serialized by
// the database lock and Dequeue is a single statement inside a short transaction:
//
//	DELETE FROM queue WHERE rowid IN (
//		SELECT rowid FROM queue ORDER BY inserted_at, rowid LIMIT 1
//	) RETURNING id, inserted_at, payload
//
// Connect opens the database in WAL mode with a busy timeout and immediate
// transactions so concurrent consumers wait for the lock instead of failing.
// Insertion time has millisecond resolution; ties are ordered by rowid.
package sqlite
