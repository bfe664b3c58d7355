package mysql

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

// Store implements sqlqueue.Queue on a MySQL table using READ COMMITTED and SKIP LOCKED.
type Store struct {
	db      *sql.DB
	owned   bool
	cfg     storeConfig
	queries queries
	name    string
}

var _ sqlqueue.Queue = (*Store)(nil)
var _ sqlqueue.Counter = (*Store)(nil)

// NewStore binds the queue name to an existing handle.
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

// MustNewStore constructs a MySQL store or panics on error.
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
	if !s.owned {
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
	if _, err := s.db.ExecContext(ctx, s.queries.createTable); err != nil {
		return s.fail(sqlqueue.ErrSchema, "initialize", err)
	}
	s.cfg.logger.Info("sqlqueue mysql: queue initialized", "queue", s.name)

	return nil
}

// Enqueue inserts one message in its own transaction.
func (s *Store) Enqueue(ctx context.Context, payload []byte) error {
	return s.EnqueueTx(ctx, s.db, payload)
}

// EnqueueTx inserts one message using the provided executor (transaction preferred).
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

// Dequeue locks the oldest unlocked message, deletes it and returns it.
func (s *Store) Dequeue(ctx context.Context) (sqlqueue.Envelope, bool, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", err)
	}

	envelopes, err := claim(ctx, tx, s.queries.claim)
	if err != nil {
		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", errors.Join(err, rollback(tx)))
	}

	switch len(envelopes) {
	case 0:
		if err := rollback(tx); err != nil {
			return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", err)
		}

		return sqlqueue.Envelope{}, false, nil
	case 1:
	default:
		s.cfg.logger.Error("sqlqueue mysql: claim selected multiple rows", "queue", s.name, "rows", len(envelopes))

		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrQueue, "dequeue", errors.Join(sqlqueue.ErrMultipleRows, rollback(tx)))
	}

	envelope := envelopes[0]
	if _, err := tx.ExecContext(ctx, s.queries.remove, envelope.ID[:]); err != nil {
		err = fmt.Errorf("delete failed: %w", err)

		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", errors.Join(err, rollback(tx)))
	}
	if err := tx.Commit(); err != nil {
		return sqlqueue.Envelope{}, false, s.fail(sqlqueue.ErrStore, "dequeue", err)
	}

	return envelope, true, nil
}

// Len returns the number of queued messages.
func (s *Store) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, s.queries.count).Scan(&count); err != nil {
		return 0, s.fail(sqlqueue.ErrStore, "len", err)
	}

	return count, nil
}

func (s *Store) fail(kind error, op string, err error) error {
	return sqlqueue.NewError(kind, "mysql "+op, s.name, err)
}

func claim(ctx context.Context, tx *sql.Tx, query string) ([]sqlqueue.Envelope, error) {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select failed: %w", err)
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

func rollback(tx *sql.Tx) error {
	err := tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
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
