// Package queuetest runs behavioral checks shared by every sqlqueue storage backend.
package queuetest

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/velmie/sqlqueue"
)

// Factory returns a queue bound to a fresh, not yet initialized table called name.
type Factory func(t *testing.T, name string) sqlqueue.Queue

const concurrentMessages = 64

// Run executes the suite against queues produced by newQueue.
func Run(t *testing.T, newQueue Factory) {
	t.Helper()

	t.Run("EmptyQueue", func(t *testing.T) { testEmptyQueue(t, newQueue) })
	t.Run("FIFO", func(t *testing.T) { testFIFO(t, newQueue) })
	t.Run("OrdersScenario", func(t *testing.T) { testOrdersScenario(t, newQueue) })
	t.Run("PayloadRoundTrip", func(t *testing.T) { testPayloadRoundTrip(t, newQueue) })
	t.Run("IdempotentInitialize", func(t *testing.T) { testIdempotentInitialize(t, newQueue) })
	t.Run("EnqueueRequiresInitialize", func(t *testing.T) { testEnqueueRequiresInitialize(t, newQueue) })
	t.Run("TwoConsumers", func(t *testing.T) { testTwoConsumers(t, newQueue) })
	t.Run("ConcurrentConsumers", func(t *testing.T) { testConcurrentConsumers(t, newQueue) })
	t.Run("Len", func(t *testing.T) { testLen(t, newQueue) })
}

func initialized(t *testing.T, newQueue Factory, name string) sqlqueue.Queue {
	t.Helper()
	queue := newQueue(t, name)
	require.NoError(t, queue.Initialize(context.Background()))
	return queue
}

func testEmptyQueue(t *testing.T, newQueue Factory) {
	queue := initialized(t, newQueue, "empty_queue")

	envelope, ok, err := queue.Dequeue(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, sqlqueue.Envelope{}, envelope)
}

func testFIFO(t *testing.T, newQueue Factory) {
	ctx := context.Background()
	queue := initialized(t, newQueue, "fifo_queue")

	payloads := make([][]byte, 0, 25)
	for i := 0; i < 25; i++ {
		payload := []byte(fmt.Sprintf("message-%02d", i))
		payloads = append(payloads, payload)
		require.NoError(t, queue.Enqueue(ctx, payload))
	}

	var previous sqlqueue.Envelope
	for i, want := range payloads {
		envelope, ok, err := queue.Dequeue(ctx)
		require.NoError(t, err)
		require.True(t, ok, "message %d missing", i)
		require.Equal(t, want, envelope.Payload)
		require.NotEqual(t, uuid.Nil, envelope.ID)
		require.False(t, envelope.InsertedAt.IsZero())
		if i > 0 {
			require.False(t, envelope.InsertedAt.Before(previous.InsertedAt), "insertion time went backwards")
		}
		previous = envelope
	}

	_, ok, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func testOrdersScenario(t *testing.T, newQueue Factory) {
	ctx := context.Background()
	queue := initialized(t, newQueue, "orders")

	for i := uint32(1); i <= 9; i++ {
		payload := make([]byte, 4)
		binary.NativeEndian.PutUint32(payload, i)
		require.NoError(t, queue.Enqueue(ctx, payload))
	}

	for want := uint32(1); want <= 9; want++ {
		envelope, ok, err := queue.Dequeue(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, envelope.Payload, 4)
		require.Equal(t, want, binary.NativeEndian.Uint32(envelope.Payload))
	}

	_, ok, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func testPayloadRoundTrip(t *testing.T, newQueue Factory) {
	ctx := context.Background()
	queue := initialized(t, newQueue, "payload_queue")

	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	payloads := [][]byte{
		{},
		nil,
		{0x00},
		[]byte("plain text"),
		all,
		make([]byte, 1<<16),
	}
	for _, payload := range payloads {
		require.NoError(t, queue.Enqueue(ctx, payload))
	}

	for i, want := range payloads {
		envelope, ok, err := queue.Dequeue(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, envelope.Payload, len(want), "payload %d length", i)
		if len(want) > 0 {
			require.Equal(t, want, envelope.Payload, "payload %d", i)
		}
	}
}

func testIdempotentInitialize(t *testing.T, newQueue Factory) {
	ctx := context.Background()
	queue := initialized(t, newQueue, "idempotent_queue")
	require.NoError(t, queue.Enqueue(ctx, []byte("kept")))

	require.NoError(t, queue.Initialize(ctx))
	require.NoError(t, queue.Initialize(ctx))

	envelope, ok, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("kept"), envelope.Payload)
}

func testEnqueueRequiresInitialize(t *testing.T, newQueue Factory) {
	queue := newQueue(t, "missing_queue")

	err := queue.Enqueue(context.Background(), []byte("x"))
	require.Error(t, err)
	require.ErrorIs(t, err, sqlqueue.ErrStore)

	_, ok, err := queue.Dequeue(context.Background())
	require.ErrorIs(t, err, sqlqueue.ErrStore)
	require.False(t, ok)
}

func testTwoConsumers(t *testing.T, newQueue Factory) {
	ctx := context.Background()
	queue := initialized(t, newQueue, "pair_queue")
	require.NoError(t, queue.Enqueue(ctx, []byte("first")))
	require.NoError(t, queue.Enqueue(ctx, []byte("second")))

	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make([]sqlqueue.Envelope, 2)
		errs    = make([]error, 2)
		oks     = make([]bool, 2)
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], oks[i], errs[i] = queue.Dequeue(ctx)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < 2; i++ {
		require.NoError(t, errs[i])
		require.True(t, oks[i])
	}
	require.NotEqual(t, results[0].ID, results[1].ID)
	require.ElementsMatch(t, [][]byte{[]byte("first"), []byte("second")}, [][]byte{results[0].Payload, results[1].Payload})

	_, ok, err := queue.Dequeue(ctx)
	require.NoError(t, err)
	require.False(t, ok)
}

func testConcurrentConsumers(t *testing.T, newQueue Factory) {
	ctx := context.Background()
	queue := initialized(t, newQueue, "concurrent_queue")
	for i := 0; i < concurrentMessages; i++ {
		require.NoError(t, queue.Enqueue(ctx, []byte(fmt.Sprintf("%d", i))))
	}

	var (
		mu       sync.Mutex
		ids      = make(map[uuid.UUID]struct{}, concurrentMessages)
		payloads = make(map[string]struct{}, concurrentMessages)
		dupes    int
		wg       sync.WaitGroup
		errCh    = make(chan error, 8)
	)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				envelope, ok, err := queue.Dequeue(ctx)
				if err != nil {
					errCh <- err
					return
				}
				if !ok {
					return
				}
				mu.Lock()
				if _, seen := ids[envelope.ID]; seen {
					dupes++
				}
				ids[envelope.ID] = struct{}{}
				payloads[string(envelope.Payload)] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}
	require.Zero(t, dupes)
	require.Len(t, ids, concurrentMessages)
	require.Len(t, payloads, concurrentMessages)
}

func testLen(t *testing.T, newQueue Factory) {
	ctx := context.Background()
	queue := initialized(t, newQueue, "len_queue")
	counter, ok := queue.(sqlqueue.Counter)
	if !ok {
		t.Skip("queue does not implement Counter")
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Enqueue(ctx, []byte("x")))
	}
	count, err := counter.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	_, _, err = queue.Dequeue(ctx)
	require.NoError(t, err)
	count, err = counter.Len(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}
