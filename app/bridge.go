package app

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/artpar/socketgate/domain/bridge"
	"github.com/artpar/socketgate/ports"
)

// BridgeDeps contains dependencies for Bridge.
type BridgeDeps struct {
	Limiter *Limiter
	// Telemetry sinks receive every rejection synchronously.
	Telemetry []ports.TelemetrySink
	Logger    zerolog.Logger
}

// Bridge is the admission-control decision point for one namespace: it gates
// every inbound socket event on the enablement flag and the burst limiter.
type Bridge struct {
	namespace string
	filter    bridge.EventFilter
	limiter   *Limiter
	enabled   atomic.Bool
	sinks     []ports.TelemetrySink
	logger    zerolog.Logger
}

// NewBridge creates the bridge for a namespace. enabled is the initial flag
// state; subscribe SetEnabled to a flag client for runtime toggling.
func NewBridge(namespace string, enabled bool, tracked, excluded []string, deps BridgeDeps) *Bridge {
	b := &Bridge{
		namespace: namespace,
		filter:    bridge.NewEventFilter(tracked, excluded),
		limiter:   deps.Limiter,
		sinks:     deps.Telemetry,
		logger:    deps.Logger,
	}
	b.enabled.Store(enabled)
	return b
}

// SetEnabled flips the bridge's admission flag.
func (b *Bridge) SetEnabled(enabled bool) {
	b.enabled.Store(enabled)
}

// Enabled reports whether the bridge is admitting events.
func (b *Bridge) Enabled() bool {
	return b.enabled.Load()
}

// Admit decides whether one inbound event may proceed. A nil return means the
// event passes to downstream handlers; otherwise the rejection carries the
// structured error data for the client.
//
// Order: disabled gate (no limiter consult), event selection, room extraction
// (no rooms means no limiter consult), then one limiter check per extracted
// room with the first throttled room winning.
func (b *Bridge) Admit(userID, event string, args ...any) *bridge.Rejection {
	if !b.enabled.Load() {
		b.emit(bridge.TelemetryEvent{
			Type:      bridge.TelemetryDisabled,
			Namespace: b.namespace,
			Event:     event,
			UserID:    userID,
		})
		return bridge.Disabled()
	}

	if !b.filter.ShouldCheck(event) {
		return nil
	}

	for _, roomID := range bridge.ExtractRoomIDs(args...) {
		decision := b.limiter.Check(userID, roomID, 1)
		if decision.Allowed {
			continue
		}
		b.emit(bridge.TelemetryEvent{
			Type:      bridge.TelemetryThrottled,
			Namespace: b.namespace,
			Event:     event,
			RoomID:    roomID,
			UserID:    userID,
			Scope:     decision.Scope,
			Limit:     decision.Limit,
			Remaining: decision.Remaining,
			ResetAt:   decision.ResetAt,
		})
		return bridge.Throttled(decision)
	}

	return nil
}

func (b *Bridge) emit(event bridge.TelemetryEvent) {
	for _, sink := range b.sinks {
		sink.Emit(event)
	}

	entry := b.logger.Info()
	if event.Type == bridge.TelemetryThrottled {
		entry = b.logger.Warn()
	}
	entry.
		Str("namespace", event.Namespace).
		Str("event", event.Event).
		Str("user", event.UserID).
		Str("room", event.RoomID).
		Str("scope", string(event.Scope)).
		Int("limit", event.Limit).
		Int("remaining", event.Remaining).
		Time("resetAt", event.ResetAt).
		Msgf("bridge event %s", event.Type)
}
