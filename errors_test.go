package sqlqueue

import (
	"errors"
	"testing"
)

type driverError struct {
	code int
}

func (e *driverError) Error() string { return "driver failure" }

func TestErrorExposesKindAndCause(t *testing.T) {
	cause := &driverError{code: 1213}
	err := NewError(ErrStore, "dequeue", "orders", cause)

	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore kind")
	}
	if errors.Is(err, ErrSchema) {
		t.Fatalf("unexpected ErrSchema kind")
	}
	var target *driverError
	if !errors.As(err, &target) || target.code != 1213 {
		t.Fatalf("expected driver error to be reachable, got %v", target)
	}
	var qerr *Error
	if !errors.As(err, &qerr) || qerr.Op != "dequeue" || qerr.Queue != "orders" {
		t.Fatalf("expected *Error with op and queue, got %#v", qerr)
	}
}

func TestErrorMessage(t *testing.T) {
	err := NewError(ErrQueue, "dequeue", "orders", ErrMultipleRows)
	want := "sqlqueue invariant violated: dequeue orders: expected one row, got multiple rows"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrMultipleRows) {
		t.Fatalf("expected ErrMultipleRows cause")
	}

	err = NewError(ErrConnection, "open", "", errors.New("refused"))
	if err.Error() != "sqlqueue connection failed: open: refused" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestNewErrorNil(t *testing.T) {
	if err := NewError(ErrStore, "enqueue", "orders", nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
