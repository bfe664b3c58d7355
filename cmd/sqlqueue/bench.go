package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/velmie/sqlqueue"
)

type benchMode string

const (
	modeEnqueue benchMode = "enqueue"
	modeConsume benchMode = "consume"
	modeMixed   benchMode = "mixed"
)

const (
	defaultBenchQueue     = "sqlqueue_bench"
	defaultBenchRecords   = 1000
	defaultBenchProducers = 4
	defaultBenchConsumers = 4
	defaultPayloadBytes   = 64
	defaultDrainTimeout   = 2 * time.Minute
	defaultDrainPoll      = 10 * time.Millisecond
	payloadHeaderBytes    = 16
	percentileP50         = 0.50
	percentileP95         = 0.95
	percentileP99         = 0.99
)

var (
	errInvalidMode      = errors.New("sqlqueue bench: invalid mode")
	errInvalidBench     = errors.New("sqlqueue bench: records, producers and consumers must be positive")
	errQueueNotEmpty    = errors.New("sqlqueue bench: queue is not empty, drain it or choose another --queue")
	errInvalidPayload   = errors.New("sqlqueue bench: payload was not produced by this benchmark")
	errDuplicateMessage = errors.New("sqlqueue bench: message delivered more than once")
	errLostMessages     = errors.New("sqlqueue bench: messages lost")
)

type benchConfig struct {
	mode         benchMode
	records      int
	producers    int
	consumers    int
	payloadBytes int
	drainTimeout time.Duration
}

type benchResult struct {
	Mode            benchMode     `json:"mode"`
	Driver          string        `json:"driver"`
	Queue           string        `json:"queue"`
	Records         int           `json:"records"`
	Producers       int           `json:"producers"`
	Consumers       int           `json:"consumers"`
	PayloadBytes    int           `json:"payload_bytes"`
	Produced        int64         `json:"produced"`
	Consumed        int64         `json:"consumed"`
	Duplicates      int64         `json:"duplicates"`
	Duration        time.Duration `json:"duration"`
	Throughput      float64       `json:"throughput_msg_per_sec"`
	DequeueP50Ms    float64       `json:"dequeue_p50_ms"`
	DequeueP95Ms    float64       `json:"dequeue_p95_ms"`
	DequeueP99Ms    float64       `json:"dequeue_p99_ms"`
	DequeueMaxMs    float64       `json:"dequeue_max_ms"`
	LatencyP50Ms    float64       `json:"latency_p50_ms"`
	LatencyP95Ms    float64       `json:"latency_p95_ms"`
	LatencyP99Ms    float64       `json:"latency_p99_ms"`
	LatencyMaxMs    float64       `json:"latency_max_ms"`
	LatencySamples  int           `json:"latency_samples"`
	HandlerFailures int64         `json:"handler_failures"`
}

func parseMode(value string) (benchMode, error) {
	switch benchMode(value) {
	case modeEnqueue, modeConsume, modeMixed:
		return benchMode(value), nil
	default:
		return "", fmt.Errorf("%w: %s", errInvalidMode, value)
	}
}

func (c benchConfig) validate() error {
	if c.records <= 0 || c.producers <= 0 || c.consumers <= 0 {
		return errInvalidBench
	}
	return nil
}

// encodePayload writes the sequence number and production time into the first
// sixteen bytes and pads the rest.
func encodePayload(seq uint64, producedAt time.Time, size int) []byte {
	payload := make([]byte, max(size, payloadHeaderBytes))
	binary.BigEndian.PutUint64(payload[0:8], seq)
	binary.BigEndian.PutUint64(payload[8:16], uint64(producedAt.UnixNano()))
	for i := payloadHeaderBytes; i < len(payload); i++ {
		payload[i] = 'a'
	}
	return payload
}

func decodePayload(payload []byte) (uint64, time.Time, error) {
	if len(payload) < payloadHeaderBytes {
		return 0, time.Time{}, errInvalidPayload
	}
	seq := binary.BigEndian.Uint64(payload[0:8])
	producedAt := time.Unix(0, int64(binary.BigEndian.Uint64(payload[8:16])))
	return seq, producedAt, nil
}

// deliveryTracker records which sequence numbers were consumed.
type deliveryTracker struct {
	mu         sync.Mutex
	seen       []bool
	consumed   int64
	duplicates int64
	invalid    int64
	done       chan struct{}
	doneOnce   sync.Once
}

func newDeliveryTracker(records int) *deliveryTracker {
	return &deliveryTracker{seen: make([]bool, records), done: make(chan struct{})}
}

func (t *deliveryTracker) record(seq uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if seq >= uint64(len(t.seen)) {
		t.invalid++
		return fmt.Errorf("%w: sequence %d", errInvalidPayload, seq)
	}
	if t.seen[seq] {
		t.duplicates++
		return fmt.Errorf("%w: sequence %d", errDuplicateMessage, seq)
	}
	t.seen[seq] = true
	t.consumed++
	if t.consumed == int64(len(t.seen)) {
		t.doneOnce.Do(func() { close(t.done) })
	}
	return nil
}

func (t *deliveryTracker) missing() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	missing := 0
	for _, ok := range t.seen {
		if !ok {
			missing++
		}
	}
	return missing
}

func (t *deliveryTracker) verify() error {
	t.mu.Lock()
	duplicates := t.duplicates
	t.mu.Unlock()

	if duplicates > 0 {
		return fmt.Errorf("%w: %d duplicates", errDuplicateMessage, duplicates)
	}
	if missing := t.missing(); missing > 0 {
		return fmt.Errorf("%w: %d of %d not delivered", errLostMessages, missing, len(t.seen))
	}
	return nil
}

type durationStats struct {
	mu      sync.Mutex
	samples []time.Duration
}

func (s *durationStats) add(d time.Duration) {
	if d < 0 {
		return
	}
	s.mu.Lock()
	s.samples = append(s.samples, d)
	s.mu.Unlock()
}

func (s *durationStats) snapshot() durationSnapshot {
	s.mu.Lock()
	samples := append([]time.Duration(nil), s.samples...)
	s.mu.Unlock()
	if len(samples) == 0 {
		return durationSnapshot{}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	return durationSnapshot{
		P50:   percentile(samples, percentileP50),
		P95:   percentile(samples, percentileP95),
		P99:   percentile(samples, percentileP99),
		Max:   samples[len(samples)-1],
		Count: len(samples),
	}
}

type durationSnapshot struct {
	P50   time.Duration
	P95   time.Duration
	P99   time.Duration
	Max   time.Duration
	Count int
}

func percentile(samples []time.Duration, p float64) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(samples)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(samples) {
		idx = len(samples) - 1
	}

	return samples[idx]
}

// benchMetrics implements sqlqueue.Metrics for the consumer side of a run.
type benchMetrics struct {
	dequeue         durationStats
	handlerFailures atomic.Int64
}

var _ sqlqueue.Metrics = (*benchMetrics)(nil)

func (m *benchMetrics) ObserveDequeueDuration(d time.Duration) { m.dequeue.add(d) }
func (m *benchMetrics) AddDelivered(int)                       {}
func (m *benchMetrics) AddHandlerErrors(n int)                 { m.handlerFailures.Add(int64(n)) }
func (m *benchMetrics) SetPending(int)                         {}

type bench struct {
	cfg     benchConfig
	store   queueStore
	logger  sqlqueue.Logger
	tracker *deliveryTracker
	metrics *benchMetrics
	latency durationStats

	produced atomic.Int64
}

func newBench(cfg benchConfig, store queueStore, logger sqlqueue.Logger) *bench {
	return &bench{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		tracker: newDeliveryTracker(cfg.records),
		metrics: &benchMetrics{},
	}
}

func (b *bench) run(ctx context.Context) (benchResult, error) {
	if err := b.cfg.validate(); err != nil {
		return benchResult{}, err
	}
	if err := b.store.Initialize(ctx); err != nil {
		return benchResult{}, err
	}
	pending, err := b.store.Len(ctx)
	if err != nil {
		return benchResult{}, err
	}
	if pending > 0 {
		return benchResult{}, fmt.Errorf("%w: %d pending", errQueueNotEmpty, pending)
	}

	var duration time.Duration
	switch b.cfg.mode {
	case modeEnqueue:
		start := time.Now()
		err = b.produce(ctx)
		duration = time.Since(start)
		if err == nil {
			// leave the queue empty for the next run
			err = b.consume(ctx)
		}
	case modeConsume:
		if err = b.produce(ctx); err != nil {
			break
		}
		start := time.Now()
		err = b.consume(ctx)
		duration = time.Since(start)
	case modeMixed:
		start := time.Now()
		err = b.mixed(ctx)
		duration = time.Since(start)
	default:
		err = fmt.Errorf("%w: %s", errInvalidMode, b.cfg.mode)
	}
	if err != nil {
		return benchResult{}, err
	}
	if err := b.tracker.verify(); err != nil {
		return benchResult{}, err
	}

	return b.result(duration), nil
}

func (b *bench) produce(ctx context.Context) error {
	var (
		next  atomic.Int64
		wg    sync.WaitGroup
		errCh = make(chan error, b.cfg.producers)
	)
	for i := 0; i < b.cfg.producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				seq := next.Add(1) - 1
				if seq >= int64(b.cfg.records) {
					return
				}
				payload := encodePayload(uint64(seq), time.Now(), b.cfg.payloadBytes)
				if err := b.store.Enqueue(ctx, payload); err != nil {
					errCh <- err
					return
				}
				b.produced.Add(1)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	return <-errCh
}

func (b *bench) consume(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	poller := sqlqueue.NewPoller(b.store, sqlqueue.HandlerFunc(b.handle),
		sqlqueue.WithWorkers(b.cfg.consumers),
		sqlqueue.WithPollInterval(defaultDrainPoll),
		sqlqueue.WithMetrics(b.metrics),
		sqlqueue.WithLogger(b.logger),
	)
	errCh := make(chan error, 1)
	go func() { errCh <- poller.Run(ctx) }()

	timer := time.NewTimer(b.cfg.drainTimeout)
	defer timer.Stop()

	select {
	case <-b.tracker.done:
		cancel()
		return ignoreCanceled(<-errCh)
	case err := <-errCh:
		if err == nil {
			err = ctx.Err()
		}
		return err
	case <-timer.C:
		cancel()
		<-errCh
		return fmt.Errorf("%w: drain timed out, %d of %d not delivered", errLostMessages, b.tracker.missing(), b.cfg.records)
	}
}

func (b *bench) mixed(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumeErr := make(chan error, 1)
	go func() { consumeErr <- b.consume(ctx) }()

	if err := b.produce(ctx); err != nil {
		cancel()
		<-consumeErr
		return err
	}

	return <-consumeErr
}

func (b *bench) handle(_ context.Context, envelope sqlqueue.Envelope) error {
	seq, producedAt, err := decodePayload(envelope.Payload)
	if err != nil {
		return err
	}
	if b.cfg.mode == modeMixed {
		b.latency.add(time.Since(producedAt))
	}
	return b.tracker.record(seq)
}

func (b *bench) result(duration time.Duration) benchResult {
	dequeue := b.metrics.dequeue.snapshot()
	latency := b.latency.snapshot()

	throughput := 0.0
	if duration > 0 {
		throughput = float64(b.cfg.records) / duration.Seconds()
	}
	b.tracker.mu.Lock()
	consumed, duplicates := b.tracker.consumed, b.tracker.duplicates
	b.tracker.mu.Unlock()

	return benchResult{
		Mode:            b.cfg.mode,
		Queue:           b.store.Name(),
		Records:         b.cfg.records,
		Producers:       b.cfg.producers,
		Consumers:       b.cfg.consumers,
		PayloadBytes:    max(b.cfg.payloadBytes, payloadHeaderBytes),
		Produced:        b.produced.Load(),
		Consumed:        consumed,
		Duplicates:      duplicates,
		Duration:        duration,
		Throughput:      throughput,
		DequeueP50Ms:    msFloat(dequeue.P50),
		DequeueP95Ms:    msFloat(dequeue.P95),
		DequeueP99Ms:    msFloat(dequeue.P99),
		DequeueMaxMs:    msFloat(dequeue.Max),
		LatencyP50Ms:    msFloat(latency.P50),
		LatencyP95Ms:    msFloat(latency.P95),
		LatencyP99Ms:    msFloat(latency.P99),
		LatencyMaxMs:    msFloat(latency.Max),
		LatencySamples:  latency.Count,
		HandlerFailures: b.metrics.handlerFailures.Load(),
	}
}

func msFloat(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
