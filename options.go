package sqlqueue

import "time"

const (
	defaultPollInterval = 50 * time.Millisecond
	defaultWorkers      = 1
	defaultPendingCheck = 0
)

// PollerConfig defines how the Poller dequeues and dispatches messages.
type PollerConfig struct {
	PollInterval    time.Duration
	Workers         int
	Clock           Clock
	ErrorHandler    FailureHandler
	Logger          Logger
	Metrics         Metrics
	HandlerTimeout  time.Duration
	PendingInterval time.Duration
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Logger == nil {
		c.Logger = NopLogger{}
	}
	if c.Metrics == nil {
		c.Metrics = NopMetrics{}
	}
	if c.PendingInterval <= 0 {
		c.PendingInterval = defaultPendingCheck
	}

	return c
}

// PollerOption configures Poller behavior.
type PollerOption func(*PollerConfig)

// WithPollInterval sets the delay after an empty dequeue.
func WithPollInterval(interval time.Duration) PollerOption {
	return func(c *PollerConfig) {
		c.PollInterval = interval
	}
}

// WithWorkers sets the number of concurrent dequeue workers.
func WithWorkers(count int) PollerOption {
	return func(c *PollerConfig) {
		c.Workers = count
	}
}

// WithClock sets the Poller clock.
func WithClock(clock Clock) PollerOption {
	return func(c *PollerConfig) {
		c.Clock = clock
	}
}

// WithErrorHandler registers a callback for handler failures.
func WithErrorHandler(handler FailureHandler) PollerOption {
	return func(c *PollerConfig) {
		c.ErrorHandler = handler
	}
}

// WithLogger sets the poller logger.
func WithLogger(logger Logger) PollerOption {
	return func(c *PollerConfig) {
		c.Logger = logger
	}
}

// WithMetrics sets the poller metrics recorder.
func WithMetrics(metrics Metrics) PollerOption {
	return func(c *PollerConfig) {
		c.Metrics = metrics
	}
}

// WithHandlerTimeout sets a per-message handler timeout.
func WithHandlerTimeout(timeout time.Duration) PollerOption {
	return func(c *PollerConfig) {
		c.HandlerTimeout = timeout
	}
}

// WithPendingInterval sets the minimum interval between queue length samples.
// Sampling requires the queue to implement Counter and is disabled by default.
func WithPendingInterval(interval time.Duration) PollerOption {
	return func(c *PollerConfig) {
		c.PendingInterval = interval
	}
}
