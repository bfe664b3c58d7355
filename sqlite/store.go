package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/velmie/sqlqueue"
	"github.com/velmie/sqlqueue/internal/sqlscan"
)

const maxNameParts = 2

// Executor allows enqueuing within an existing transaction, *sql.Tx satisfies it.
type Executor interface {
	// ExecContext executes a statement with the provided context.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Store implements sqlqueue.Queue on a SQLite table.
type Store struct {
	db      *sql.DB
	owned   bool
	cfg     storeConfig
	queries queries
	name    string
}

var _ sqlqueue.Queue = (*Store)(nil)
var _ sqlqueue.Counter = (*Store)(nil)

// NewStore binds the queue name to an existing handle opened with the "sqlite" driver.
// Store operations set the busy timeout on each connection they use, so a handle
// from a plain sql.Open works with concurrent consumers.
func NewStore(db *sql.DB, name string, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrDBRequired
	}

	parts, err := parseName(name)
	if err != nil {
		return nil, err
	}

	var cfg storeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Store{
		db:      db,
		cfg:     cfg.withDefaults(),
		queries: newQueries(parts),
		name:    name,
	}, nil
}

// MustNewStore constructs a SQLite store or panics on error.
func MustNewStore(db *sql.DB, name string, opts ...Option) *Store {
	store, err := NewStore(db, name, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// Open connects with cfg and binds the queue name. Close releases the handle.
func Open(ctx context.Context, cfg Config, name string, opts ...Option) (*Store, error) {
	if _, err := parseName(name); err != nil {
		return nil, err
	}

	db, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	opts = append([]Option{WithBusyTimeout(cfg.BusyTimeout)}, opts...)
	store, err := NewStore(db, name, opts...)
	if err != nil {
		_ = db.Close()

		return nil, err
	}
	store.owned = true

	return store, nil
}

// Close releases the handle when the store was created by Open.
func (s *Store) Close() error {
	if s == nil || !s.owned {
		return nil
	}

	return s.db.Close()
}

// Name returns the queue name.
func (s *Store) Name() string {
	return s.name
}

// Initialize creates the queue table and its ordering index if they do not exist.
func (s *Store) Initialize(ctx context.Context) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return s.fail(sqlqueue.ErrSchema, "initialize", err)
	}

	for _, stmt := range []string{s.queries.createTable, s.queries.createIndex} {
		if _, err := tx.conn.ExecContext(ctx, stmt); err != nil {
			return s.fail(sqlqueue.ErrSchema, "initialize", errors.Join(err, tx.rollback(ctx)))
		}
	}

	if err := tx.commit(ctx); err != nil {
		return s.fail(sqlqueue.ErrSchema, "initialize", err)
	}
	s.cfg.logger.Info("sqlqueue sqlite: queue initialized", "queue", s.name)

	return nil
}

// Enqueue inserts one message in its own transaction.
func (s *Store) Enqueue(ctx context.Context, payload []byte) error {
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return s.EnqueueTx(ctx, conn, payload)
	})
	if err != nil && !errors.Is(err, sqlqueue.ErrStore) {
		return s.fail(sqlqueue.ErrStore, "enqueue", err)
	}

	return err
}

// EnqueueTx inserts one message using the provided executor (transaction preferred).
// A caller owned transaction should be opened on a handle from Connect, whose
// DSN sets the busy timeout and IMMEDIATE locking.
func (s *Store) EnqueueTx(ctx context.Context, exec Executor, payload []byte) error {
	if exec == nil {
		return ErrExecutorRequired
	}
	if payload == nil {
		payload = []byte{}
	}

	if _, err := exec.ExecContext(ctx, s.queries.insert, payload); err != nil {
		return s.fail(sqlqueue.ErrStore, "enqueue", err)
	}

	return nil
}

// Dequeue deletes the oldest message and returns it.
//
// The claim runs in a BEGIN IMMEDIATE transaction, so concurrent consumers queue
// on the write lock for up to the busy timeout instead of failing when a read
// lock cannot be upgraded.
func (s *Store) Dequeue(ctx context.Context) (sqlqueue.Envelope, bool, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", err)
	}

	envelopes, err := claim(ctx, tx.conn, s.queries.dequeue)
	if err != nil {
		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", errors.Join(err, tx.rollback(ctx)))
	}

	switch len(envelopes) {
	case 0:
		if err := tx.rollback(ctx); err != nil {
			return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", err)
		}

		return sqlqueue.Envelope{}, false, nil
	case 1:
		if err := tx.commit(ctx); err != nil {
			return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", err)
		}

		return envelopes[0], true, nil
	default:
		s.cfg.logger.Error("sqlqueue sqlite: claim selected multiple rows", "queue", s.name, "rows", len(envelopes))

		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrQueue, "dequeue", errors.Join(sqlqueue.ErrMultipleRows, tx.rollback(ctx)))
	}
}

// Len returns the number of queued messages.
func (s *Store) Len(ctx context.Context) (int, error) {
	var count int
	err := s.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, s.queries.count).Scan(&count)
	})
	if err != nil {
		return 0, s.fail(sqlqueue.ErrStore, "len", err)
	}

	return count, nil
}

func (s *Store) fail(kind error, op string, err error) error {
	return sqlqueue.NewError(kind, "sqlite "+op, s.name, err)
}

func claim(ctx context.Context, conn *sql.Conn, query string) ([]sqlqueue.Envelope, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("claim failed: %w", err)
	}
	defer rows.Close()

	envelopes := make([]sqlqueue.Envelope, 0, 1)
	for rows.Next() {
		var envelope sqlqueue.Envelope
		if err := rows.Scan(&envelope.ID, sqlscan.Time(&envelope.InsertedAt), &envelope.Payload); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		if envelope.Payload == nil {
			envelope.Payload = []byte{}
		}
		envelopes = append(envelopes, envelope)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows failed: %w", err)
	}

	return envelopes, nil
}

func parseName(name string) ([]string, error) {
	parts, err := sqlqueue.ParseName(name)
	if err != nil {
		return nil, err
	}
	if len(parts) > maxNameParts {
		return nil, fmt.Errorf("%w: %s", ErrNameTooLong, name)
	}

	return parts, nil
}
