package sqlqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// SystemClock uses the system time in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// Poller repeatedly dequeues from a Queue and invokes a Handler for each message.
//
// Messages are removed from the queue before the handler runs, a handler error
// is reported but the message is not requeued.
type Poller struct {
	queue   Queue
	handler Handler
	cfg     PollerConfig

	pendingMu sync.Mutex
	pendingAt time.Time
}

// NewPoller constructs a Poller with defaults and optional settings.
func NewPoller(queue Queue, handler Handler, opts ...PollerOption) *Poller {
	if queue == nil {
		panic("sqlqueue: nil Queue")
	}
	if handler == nil {
		panic("sqlqueue: nil Handler")
	}

	var cfg PollerConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	return &Poller{
		queue:   queue,
		handler: handler,
		cfg:     cfg,
	}
}

// Run starts the polling loop with the configured number of workers.
// It returns when ctx is canceled or when any worker hits a store error.
func (p *Poller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, p.cfg.Workers)
	var wg sync.WaitGroup

	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		workerID := i
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					err := fmt.Errorf("%w: %v", ErrWorkerPanic, rec)
					p.cfg.Logger.Error("sqlqueue worker panic", "worker", workerID, "panic", rec)
					errCh <- err
					cancel()
				}
			}()

			// store errors raised while shutting down are not failures
			if err := p.runWorker(ctx); err != nil && !errors.Is(err, context.Canceled) && ctx.Err() == nil {
				p.cfg.Logger.Error("sqlqueue worker error", "worker", workerID, "err", err)
				errCh <- err
				cancel()
			}
		}()
	}

	wg.Wait()
	close(errCh)

	if err := <-errCh; err != nil {
		return err
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}

// ProcessOnce dequeues and handles at most one message.
// It reports whether a message was delivered to the handler.
func (p *Poller) ProcessOnce(ctx context.Context) (bool, error) {
	envelope, ok, err := p.dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		p.maybeRecordPending(ctx)

		return false, nil
	}

	if err := p.handle(ctx, envelope); err != nil {
		return true, err
	}

	return true, nil
}

func (p *Poller) runWorker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		delivered, err := p.ProcessOnce(ctx)
		if err != nil {
			return err
		}
		if delivered {
			continue
		}
		if sleepErr := p.sleep(ctx, p.cfg.PollInterval); sleepErr != nil {
			return sleepErr
		}
	}
}

func (p *Poller) dequeue(ctx context.Context) (Envelope, bool, error) {
	start := time.Now()
	envelope, ok, err := p.queue.Dequeue(ctx)
	p.cfg.Metrics.ObserveDequeueDuration(time.Since(start))

	return envelope, ok, err
}

func (p *Poller) handle(ctx context.Context, envelope Envelope) error {
	handleCtx := ctx
	cancel := func() {}
	if p.cfg.HandlerTimeout > 0 {
		handleCtx, cancel = context.WithTimeout(ctx, p.cfg.HandlerTimeout)
	}
	err := p.handler.Handle(handleCtx, envelope)
	cancel()

	p.cfg.Metrics.AddDelivered(1)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	p.cfg.Metrics.AddHandlerErrors(1)
	p.cfg.Logger.Warn("sqlqueue handler failed", "id", envelope.ID, "err", err)
	if p.cfg.ErrorHandler != nil {
		p.cfg.ErrorHandler(ctx, envelope, err)
	}

	return nil
}

func (p *Poller) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Poller) maybeRecordPending(ctx context.Context) {
	counter, ok := p.queue.(Counter)
	if !ok {
		return
	}
	if p.cfg.PendingInterval <= 0 {
		return
	}
	if ctx.Err() != nil {
		return
	}

	now := p.cfg.Clock.Now()
	p.pendingMu.Lock()
	nextAllowed := p.pendingAt.Add(p.cfg.PendingInterval)
	if !p.pendingAt.IsZero() && now.Before(nextAllowed) {
		p.pendingMu.Unlock()

		return
	}
	p.pendingAt = now
	p.pendingMu.Unlock()

	count, err := counter.Len(ctx)
	if err != nil {
		p.cfg.Logger.Warn("sqlqueue pending count failed", "err", err)

		return
	}

	p.cfg.Metrics.SetPending(count)
}
