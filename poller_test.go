package sqlqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type sequenceClock struct {
	mu    sync.Mutex
	times []time.Time
}

func (c *sequenceClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.times) == 0 {
		return time.Time{}
	}
	now := c.times[0]
	if len(c.times) > 1 {
		c.times = c.times[1:]
	}
	return now
}

type sliceQueue struct {
	mu        sync.Mutex
	envelopes []Envelope
	err       error
	dequeues  int
}

func (q *sliceQueue) Initialize(context.Context) error { return nil }

func (q *sliceQueue) Enqueue(_ context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.envelopes = append(q.envelopes, Envelope{ID: uuid.New(), InsertedAt: time.Now(), Payload: payload})
	return nil
}

func (q *sliceQueue) Dequeue(context.Context) (Envelope, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dequeues++
	if q.err != nil {
		return Envelope{}, false, q.err
	}
	if len(q.envelopes) == 0 {
		return Envelope{}, false, nil
	}
	envelope := q.envelopes[0]
	q.envelopes = q.envelopes[1:]
	return envelope, true, nil
}

type cancelQueue struct {
	sliceQueue
	started  chan struct{}
	allowErr chan struct{}
	canceled int32
}

func (q *cancelQueue) Dequeue(ctx context.Context) (Envelope, bool, error) {
	q.started <- struct{}{}
	select {
	case <-q.allowErr:
		return Envelope{}, false, errors.New("boom")
	case <-ctx.Done():
		atomic.StoreInt32(&q.canceled, 1)
		return Envelope{}, false, ctx.Err()
	}
}

type pendingQueue struct {
	sliceQueue
	count int
	calls int
}

func (q *pendingQueue) Len(context.Context) (int, error) {
	q.calls++
	return q.count, nil
}

type captureMetrics struct {
	mu            sync.Mutex
	delivered     int
	handlerErrors int
	dequeues      int
	pending       int
	pendingCalls  int
}

func (m *captureMetrics) ObserveDequeueDuration(time.Duration) {
	m.mu.Lock()
	m.dequeues++
	m.mu.Unlock()
}

func (m *captureMetrics) AddDelivered(count int) {
	m.mu.Lock()
	m.delivered += count
	m.mu.Unlock()
}

func (m *captureMetrics) AddHandlerErrors(count int) {
	m.mu.Lock()
	m.handlerErrors += count
	m.mu.Unlock()
}

func (m *captureMetrics) SetPending(count int) {
	m.pending = count
	m.pendingCalls++
}

func nopHandler() Handler {
	return HandlerFunc(func(context.Context, Envelope) error { return nil })
}

func TestPollerProcessOnce(t *testing.T) {
	queue := &sliceQueue{}
	_ = queue.Enqueue(context.Background(), []byte("a"))
	var got []byte
	poller := NewPoller(queue, HandlerFunc(func(_ context.Context, envelope Envelope) error {
		got = envelope.Payload
		return nil
	}))

	ok, err := poller.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("process once: %v", err)
	}
	if !ok {
		t.Fatalf("expected message to be delivered")
	}
	if string(got) != "a" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestPollerProcessOnceEmpty(t *testing.T) {
	poller := NewPoller(&sliceQueue{}, nopHandler())

	ok, err := poller.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("process once: %v", err)
	}
	if ok {
		t.Fatalf("expected no message")
	}
}

func TestPollerProcessOnceStoreError(t *testing.T) {
	storeErr := NewError(ErrStore, "dequeue", "orders", errors.New("conn reset"))
	poller := NewPoller(&sliceQueue{err: storeErr}, nopHandler())

	_, err := poller.ProcessOnce(context.Background())
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestPollerHandlerErrorDoesNotRequeue(t *testing.T) {
	queue := &sliceQueue{}
	_ = queue.Enqueue(context.Background(), []byte("a"))
	metrics := &captureMetrics{}
	var calls int
	poller := NewPoller(queue, HandlerFunc(func(context.Context, Envelope) error {
		return errors.New("boom")
	}), WithMetrics(metrics), WithErrorHandler(func(context.Context, Envelope, error) {
		calls++
	}))

	ok, err := poller.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("process once: %v", err)
	}
	if !ok {
		t.Fatalf("expected message to be delivered")
	}
	if calls != 1 {
		t.Fatalf("expected failure handler to be called once, got %d", calls)
	}
	if metrics.handlerErrors != 1 || metrics.delivered != 1 {
		t.Fatalf("unexpected metrics: delivered=%d errors=%d", metrics.delivered, metrics.handlerErrors)
	}
	if len(queue.envelopes) != 0 {
		t.Fatalf("expected message to stay removed")
	}
}

func TestPollerFailureHandlerNotCalledOnContextCancel(t *testing.T) {
	queue := &sliceQueue{}
	_ = queue.Enqueue(context.Background(), []byte("a"))
	var calls int
	poller := NewPoller(queue, HandlerFunc(func(ctx context.Context, _ Envelope) error {
		return ctx.Err()
	}), WithErrorHandler(func(context.Context, Envelope, error) {
		calls++
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := poller.ProcessOnce(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected failure handler not to be called, got %d", calls)
	}
}

func TestPollerHandlerTimeoutApplied(t *testing.T) {
	queue := &sliceQueue{}
	_ = queue.Enqueue(context.Background(), []byte("a"))
	deadlineCh := make(chan time.Time, 1)
	poller := NewPoller(queue, HandlerFunc(func(ctx context.Context, _ Envelope) error {
		if deadline, ok := ctx.Deadline(); ok {
			deadlineCh <- deadline
		} else {
			deadlineCh <- time.Time{}
		}
		return nil
	}), WithHandlerTimeout(10*time.Millisecond))

	if _, err := poller.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("process once: %v", err)
	}
	if deadline := <-deadlineCh; deadline.IsZero() {
		t.Fatalf("expected handler deadline")
	}
}

func TestPollerRunContextCancel(t *testing.T) {
	poller := NewPoller(&sliceQueue{}, nopHandler(), WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := poller.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestPollerRunDrainsQueue(t *testing.T) {
	queue := &sliceQueue{}
	for i := 0; i < 20; i++ {
		_ = queue.Enqueue(context.Background(), []byte{byte(i)})
	}

	var handled int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller := NewPoller(queue, HandlerFunc(func(context.Context, Envelope) error {
		if atomic.AddInt32(&handled, 1) == 20 {
			cancel()
		}
		return nil
	}), WithWorkers(4), WithPollInterval(time.Millisecond))

	if err := poller.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := atomic.LoadInt32(&handled); got != 20 {
		t.Fatalf("expected 20 handled messages, got %d", got)
	}
}

func TestPollerRunCancelsOtherWorkers(t *testing.T) {
	queue := &cancelQueue{
		started:  make(chan struct{}, 2),
		allowErr: make(chan struct{}, 1),
	}
	poller := NewPoller(queue, nopHandler(), WithWorkers(2))

	errCh := make(chan error, 1)
	go func() {
		errCh <- poller.Run(context.Background())
	}()

	<-queue.started
	<-queue.started
	queue.allowErr <- struct{}{}

	err := <-errCh
	if err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom error, got %v", err)
	}
	if atomic.LoadInt32(&queue.canceled) != 1 {
		t.Fatalf("expected other worker to observe cancellation")
	}
}

func TestPollerRunRecoversPanic(t *testing.T) {
	queue := &sliceQueue{}
	_ = queue.Enqueue(context.Background(), []byte("a"))
	poller := NewPoller(queue, HandlerFunc(func(context.Context, Envelope) error {
		panic("handler exploded")
	}))

	err := poller.Run(context.Background())
	if !errors.Is(err, ErrWorkerPanic) {
		t.Fatalf("expected worker panic error, got %v", err)
	}
}

func TestPollerPendingCountDisabledByDefault(t *testing.T) {
	queue := &pendingQueue{count: 10}
	metrics := &captureMetrics{}
	poller := NewPoller(queue, nopHandler(), WithMetrics(metrics))

	poller.maybeRecordPending(context.Background())

	if queue.calls != 0 {
		t.Fatalf("expected no pending count calls, got %d", queue.calls)
	}
	if metrics.pendingCalls != 0 {
		t.Fatalf("expected no pending metric updates, got %d", metrics.pendingCalls)
	}
}

func TestPollerPendingCountEnabled(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := &sequenceClock{times: []time.Time{now, now, now.Add(time.Second)}}
	queue := &pendingQueue{count: 42}
	metrics := &captureMetrics{}
	poller := NewPoller(
		queue,
		nopHandler(),
		WithClock(clock),
		WithMetrics(metrics),
		WithPendingInterval(time.Second),
	)

	poller.maybeRecordPending(context.Background())
	poller.maybeRecordPending(context.Background())
	poller.maybeRecordPending(context.Background())

	if queue.calls != 2 {
		t.Fatalf("expected 2 pending count calls, got %d", queue.calls)
	}
	if metrics.pendingCalls != 2 {
		t.Fatalf("expected 2 pending metric updates, got %d", metrics.pendingCalls)
	}
	if metrics.pending != 42 {
		t.Fatalf("expected pending count 42, got %d", metrics.pending)
	}
}

func TestPollerPendingSampledOnEmptyDequeue(t *testing.T) {
	queue := &pendingQueue{count: 3}
	metrics := &captureMetrics{}
	poller := NewPoller(queue, nopHandler(),
		WithClock(fixedClock{now: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}),
		WithMetrics(metrics),
		WithPendingInterval(time.Minute),
	)

	if _, err := poller.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("process once: %v", err)
	}
	if metrics.pending != 3 || metrics.dequeues != 1 {
		t.Fatalf("unexpected metrics: pending=%d dequeues=%d", metrics.pending, metrics.dequeues)
	}
}
