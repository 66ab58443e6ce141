package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/artpar/socketgate/adapters/metrics"
	"github.com/artpar/socketgate/domain/bridge"
	"github.com/artpar/socketgate/domain/ratelimit"
)

func TestNew_RegistersWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := metrics.New(reg)

	c.ConnectionsActive.WithLabelValues("pods").Inc()
	c.EventsReceived.WithLabelValues("pods").Inc()
	c.BridgeEnabled.WithLabelValues("pods").Set(1)

	if got := testutil.ToFloat64(c.ConnectionsActive.WithLabelValues("pods")); got != 1 {
		t.Errorf("connections gauge = %v, want 1", got)
	}
}

func TestBridgeSink_CountsByType(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())
	sink := c.BridgeSink("guilds")

	sink.Emit(bridge.TelemetryEvent{
		Type:    bridge.TelemetryThrottled,
		Scope:   ratelimit.ScopeUserRoom,
		ResetAt: time.Now(),
	})
	sink.Emit(bridge.TelemetryEvent{Type: bridge.TelemetryDisabled})

	if got := testutil.ToFloat64(c.EventsThrottled.WithLabelValues("guilds", "user_room")); got != 1 {
		t.Errorf("throttled counter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.EventsDisabled.WithLabelValues("guilds")); got != 1 {
		t.Errorf("disabled counter = %v, want 1", got)
	}
}
