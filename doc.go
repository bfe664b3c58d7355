// Package sqlqueue provides a durable FIFO queue stored in a single SQL table per queue.
//
// Typical flow:
//  1. Open a storage-specific Store and call Initialize once to create the table and its index.
//  2. Producers call Enqueue, the database assigns the message id and insertion time.
//  3. Consumers call Dequeue, which claims and deletes the oldest unlocked row in one transaction.
//
// Dequeue is destructive: a returned message is never delivered again, even if the consumer
// fails while handling it. Poller wraps Dequeue in a polling loop with concurrent workers.
//
// See the postgres and mysql packages (FOR UPDATE SKIP LOCKED) and the sqlite package
// (writer-serialized DELETE ... RETURNING) for the storage implementations.
package sqlqueue
