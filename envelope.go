package sqlqueue

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is a message claimed from a queue.
type Envelope struct {
	// ID is assigned by the database on insert and only identifies the row.
	ID uuid.UUID
	// InsertedAt is assigned by the database on insert and defines FIFO order.
	InsertedAt time.Time
	// Payload is returned exactly as it was enqueued.
	Payload []byte
}
