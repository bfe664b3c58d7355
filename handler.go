package sqlqueue

import "context"

// Handler processes a single dequeued message.
type Handler interface {
	// Handle processes an envelope. The message is already removed from the queue.
	Handle(ctx context.Context, envelope Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, envelope Envelope) error

// Handle implements Handler.
func (fn HandlerFunc) Handle(ctx context.Context, envelope Envelope) error {
	return fn(ctx, envelope)
}

// FailureHandler is called when a handler returns an error.
type FailureHandler func(ctx context.Context, envelope Envelope, err error)
