package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/velmie/sqlqueue"
)

const maxNameParts = 2

// DB is the subset of *pgxpool.Pool used by Store.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Executor allows enqueuing within an existing transaction, pgx.Tx satisfies it.
type Executor interface {
	// Exec executes a statement with the provided context.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store implements sqlqueue.Queue on a PostgreSQL table.
type Store struct {
	db      DB
	pool    *pgxpool.Pool
	cfg     storeConfig
	queries queries
	name    string
}

var _ sqlqueue.Queue = (*Store)(nil)
var _ sqlqueue.Counter = (*Store)(nil)

// NewStore binds the queue name to an existing pool.
func NewStore(db DB, name string, opts ...Option) (*Store, error) {
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

// MustNewStore constructs a store or panics on error.
func MustNewStore(db DB, name string, opts ...Option) *Store {
	store, err := NewStore(db, name, opts...)
	if err != nil {
		panic(err)
	}

	return store
}

// Open connects with cfg and binds the queue name. Close releases the pool.
func Open(ctx context.Context, cfg Config, name string, opts ...Option) (*Store, error) {
	if _, err := parseName(name); err != nil {
		return nil, err
	}

	pool, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(pool, name, opts...)
	if err != nil {
		pool.Close()

		return nil, err
	}
	store.pool = pool

	return store, nil
}

// Close releases the pool when the store was created by Open.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}

	return nil
}

// Name returns the queue name.
func (s *Store) Name() string {
	return s.name
}

// Initialize creates the queue table and its ordering index if they do not exist.
// Concurrent initializers are serialized with a transaction scoped advisory lock.
func (s *Store) Initialize(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return s.fail(sqlqueue.ErrSchema, "initialize", err)
	}

	for _, stmt := range []struct {
		query string
		args  []any
	}{
		{query: s.queries.lock, args: []any{s.name}},
		{query: s.queries.createTable},
		{query: s.queries.createIndex},
	} {
		if _, err := tx.Exec(ctx, stmt.query, stmt.args...); err != nil {
			return s.fail(sqlqueue.ErrSchema, "initialize", errors.Join(err, rollback(ctx, tx)))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return s.fail(sqlqueue.ErrSchema, "initialize", err)
	}
	s.cfg.logger.Info("sqlqueue postgres: queue initialized", "queue", s.name)

	return nil
}

// Enqueue inserts one message in its own transaction.
func (s *Store) Enqueue(ctx context.Context, payload []byte) error {
	return s.EnqueueTx(ctx, s.db, payload)
}

// EnqueueTx inserts one message through exec, typically a caller owned pgx.Tx.
// The message becomes visible to consumers when that transaction commits.
func (s *Store) EnqueueTx(ctx context.Context, exec Executor, payload []byte) error {
	if exec == nil {
		return ErrExecutorRequired
	}
	if payload == nil {
		payload = []byte{}
	}

	if _, err := exec.Exec(ctx, s.queries.insert, payload); err != nil {
		return s.fail(sqlqueue.ErrStore, "enqueue", err)
	}

	return nil
}

// Dequeue claims and deletes the oldest unlocked message.
func (s *Store) Dequeue(ctx context.Context) (sqlqueue.Envelope, bool, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", err)
	}

	envelopes, err := claim(ctx, tx, s.queries.dequeue)
	if err != nil {
		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", errors.Join(err, rollback(ctx, tx)))
	}

	switch len(envelopes) {
	case 0:
		if err := rollback(ctx, tx); err != nil {
			return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", err)
		}

		return sqlqueue.Envelope{}, false, nil
	case 1:
		if err := tx.Commit(ctx); err != nil {
			return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", err)
		}

		return envelopes[0], true, nil
	default:
		s.cfg.logger.Error("sqlqueue postgres: claim selected multiple rows", "queue", s.name, "rows", len(envelopes))

		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrQueue, "dequeue", errors.Join(sqlqueue.ErrMultipleRows, rollback(ctx, tx)))
	}
}

// Len returns the number of queued messages.
func (s *Store) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, s.queries.count).Scan(&count); err != nil {
		return 0, s.fail(sqlqueue.ErrStore, "len", err)
	}

	return count, nil
}

func (s *Store) fail(kind error, op string, err error) error {
	return sqlqueue.NewError(kind, "postgres "+op, s.name, err)
}

func claim(ctx context.Context, tx pgx.Tx, query string) ([]sqlqueue.Envelope, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("claim failed: %w", err)
	}
	defer rows.Close()

	envelopes := make([]sqlqueue.Envelope, 0, 1)
	for rows.Next() {
		var envelope sqlqueue.Envelope
		if err := rows.Scan(&envelope.ID, &envelope.InsertedAt, &envelope.Payload); err != nil {
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

func rollback(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)
	if err == nil || errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}

	return fmt.Errorf("rollback failed: %w", err)
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
