package bridge

import (
	"time"

	"github.com/artpar/socketgate/domain/ratelimit"
)

// Telemetry event types.
const (
	TelemetryThrottled = "throttled"
	TelemetryDisabled  = "disabled"
)

// Rejection codes surfaced to clients.
const (
	CodeDisabled  = "bridge_disabled"
	CodeThrottled = "bridge_throttled"
)

// TelemetryEvent describes one admission decision that rejected an event.
// It is emitted synchronously to sinks and never persisted here.
type TelemetryEvent struct {
	Type      string          `json:"type"`
	Namespace string          `json:"namespace"`
	Event     string          `json:"event"`
	RoomID    string          `json:"roomId,omitempty"`
	UserID    string          `json:"userId"`
	Scope     ratelimit.Scope `json:"scope,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Remaining int             `json:"remaining,omitempty"`
	ResetAt   time.Time       `json:"resetAt,omitempty"`
}

// Rejection is the structured error payload returned to a client whose event
// was blocked by the bridge.
type Rejection struct {
	Code      string          `json:"code"`
	Scope     ratelimit.Scope `json:"scope,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Remaining int             `json:"remaining,omitempty"`
	ResetAt   time.Time       `json:"resetAt,omitempty"`
}

// Disabled builds the rejection for a switched-off bridge.
func Disabled() *Rejection {
	return &Rejection{Code: CodeDisabled}
}

// Throttled builds the rejection for a denied limiter decision.
func Throttled(decision ratelimit.Decision) *Rejection {
	return &Rejection{
		Code:      CodeThrottled,
		Scope:     decision.Scope,
		Limit:     decision.Limit,
		Remaining: decision.Remaining,
		ResetAt:   decision.ResetAt,
	}
}
