// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/ and web/.
package ports

import (
	"time"

	"github.com/artpar/socketgate/domain/bridge"
	"github.com/artpar/socketgate/domain/ratelimit"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique socket identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// State Ports
// -----------------------------------------------------------------------------

// CounterStore holds fixed-window counter state for one limiter scope.
// Admission decisions must never block on I/O, so implementations are
// in-process and the methods are synchronous by contract.
type CounterStore interface {
	// Get retrieves the counter for a key; ok is false when absent.
	Get(key string) (state ratelimit.CounterState, ok bool)

	// Set stores the counter for a key.
	Set(key string, state ratelimit.CounterState)

	// Sweep removes counters whose window ended before now and returns how
	// many were removed.
	Sweep(now time.Time) int

	// Len returns the number of tracked counters.
	Len() int
}

// -----------------------------------------------------------------------------
// Delivery Ports
// -----------------------------------------------------------------------------

// Sender delivers named events to a single connected socket.
// Implementations must be safe for concurrent use.
type Sender interface {
	// ID returns the transport-assigned socket identifier.
	ID() string

	// Send writes one event frame to the socket. Errors indicate a dead or
	// backed-up connection and are safe to ignore for broadcasts.
	Send(event string, data any) error
}

// TelemetrySink receives admission rejections as they happen.
type TelemetrySink interface {
	Emit(event bridge.TelemetryEvent)
}

// TelemetryFunc adapts a function to the TelemetrySink interface.
type TelemetryFunc func(event bridge.TelemetryEvent)

// Emit calls the wrapped function.
func (f TelemetryFunc) Emit(event bridge.TelemetryEvent) { f(event) }
