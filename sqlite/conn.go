package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
)

// immediateTx is a write transaction started with BEGIN IMMEDIATE on a single
// pooled connection. The write lock is taken before the first read, whatever
// _txlock the handle was opened with.
type immediateTx struct {
	conn *sql.Conn
	done bool
}

// conn reserves a connection and applies the store busy timeout to it.
func (s *Store) conn(ctx context.Context) (*sql.Conn, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	pragma := fmt.Sprintf("PRAGMA busy_timeout = %d", s.cfg.busyTimeout.Milliseconds())
	if _, err := conn.ExecContext(ctx, pragma); err != nil {
		return nil, errors.Join(err, conn.Close())
	}

	return conn, nil
}

func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(conn)
}

func (s *Store) begin(ctx context.Context) (*immediateTx, error) {
	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return nil, errors.Join(fmt.Errorf("begin failed: %w", err), conn.Close())
	}

	return &immediateTx{conn: conn}, nil
}

func (tx *immediateTx) commit(ctx context.Context) error {
	if _, err := tx.conn.ExecContext(ctx, "COMMIT"); err != nil {
		return errors.Join(fmt.Errorf("commit failed: %w", err), tx.rollback(ctx))
	}
	tx.done = true
	_ = tx.conn.Close()

	return nil
}

// rollback ends the transaction and returns the connection to the pool. A
// connection that cannot be rolled back is discarded so no open transaction
// leaks into the pool.
func (tx *immediateTx) rollback(ctx context.Context) error {
	if tx.done {
		return nil
	}
	tx.done = true

	if _, err := tx.conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); err != nil {
		_ = tx.conn.Raw(func(any) error { return driver.ErrBadConn })
		_ = tx.conn.Close()

		return fmt.Errorf("rollback failed: %w", err)
	}

	return tx.conn.Close()
}
