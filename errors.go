package sqlqueue

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection indicates the backing store session could not be established or used.
	ErrConnection = errors.New("sqlqueue connection failed")
	// ErrSchema indicates queue schema initialization failed.
	ErrSchema = errors.New("sqlqueue schema initialization failed")
	// ErrStore wraps a backing engine failure during enqueue or dequeue.
	ErrStore = errors.New("sqlqueue store operation failed")
	// ErrQueue indicates a queue invariant was violated by the backing engine.
	ErrQueue = errors.New("sqlqueue invariant violated")

	// ErrMultipleRows is the ErrQueue cause reported when a claim selects more than one row.
	ErrMultipleRows = errors.New("expected one row, got multiple rows")
	// ErrNameRequired is returned when the queue name is empty.
	ErrNameRequired = errors.New("sqlqueue queue name is required")
	// ErrInvalidName is returned when the queue name has disallowed characters.
	ErrInvalidName = errors.New("sqlqueue invalid queue name")
	// ErrWorkerPanic indicates a poller worker panic.
	ErrWorkerPanic = errors.New("sqlqueue worker panic")
)

// Error is a failure of a queue operation tagged with its kind.
//
// Kind is one of ErrConnection, ErrSchema, ErrStore or ErrQueue. Both Kind and the
// underlying cause are reachable through errors.Is and errors.As.
type Error struct {
	Kind  error
	Op    string
	Queue string
	Err   error
}

// NewError builds an *Error. It returns nil when err is nil.
func NewError(kind error, op, queue string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Op: op, Queue: queue, Err: err}
}

// Error implements error.
func (e *Error) Error() string {
	if e.Queue == "" {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
	}

	return fmt.Sprintf("%v: %s %s: %v", e.Kind, e.Op, e.Queue, e.Err)
}

// Unwrap exposes the kind sentinel and the cause.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
