package sqlqueue

import "time"

// Metrics captures poller telemetry.
type Metrics interface {
	// ObserveDequeueDuration records the round trip of a single dequeue.
	ObserveDequeueDuration(duration time.Duration)
	// AddDelivered increments the count of messages handed to the handler.
	AddDelivered(count int)
	// AddHandlerErrors increments the count of handler errors.
	AddHandlerErrors(count int)
	// SetPending updates the current number of queued messages.
	SetPending(count int)
}

// NopMetrics is a no-op metrics recorder.
type NopMetrics struct{}

// ObserveDequeueDuration implements Metrics.
func (NopMetrics) ObserveDequeueDuration(time.Duration) {}

// AddDelivered implements Metrics.
func (NopMetrics) AddDelivered(int) {}

// AddHandlerErrors implements Metrics.
func (NopMetrics) AddHandlerErrors(int) {}

// SetPending implements Metrics.
func (NopMetrics) SetPending(int) {}
