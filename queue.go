package sqlqueue

import "context"

// Queue is a FIFO queue backed by one SQL table.
type Queue interface {
	// Initialize creates the queue table and its ordering index if they do not exist.
	Initialize(ctx context.Context) error
	// Enqueue appends one message in its own transaction.
	Enqueue(ctx context.Context, payload []byte) error
	// Dequeue claims and removes the oldest unlocked message.
	// It returns false with a nil error when no message is available.
	Dequeue(ctx context.Context) (Envelope, bool, error)
}

// Counter reports the number of messages waiting in a queue.
type Counter interface {
	// Len returns the current number of rows in the queue table.
	Len(ctx context.Context) (int, error)
}
