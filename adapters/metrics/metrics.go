// Package metrics provides Prometheus metrics collection for socketgate.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/artpar/socketgate/domain/bridge"
	"github.com/artpar/socketgate/ports"
)

// Collector holds all Prometheus metrics for socketgate.
type Collector struct {
	// Socket metrics
	ConnectionsActive *prometheus.GaugeVec
	EventsReceived    *prometheus.CounterVec

	// Bridge metrics
	EventsThrottled *prometheus.CounterVec
	EventsDisabled  *prometheus.CounterVec
	BridgeEnabled   *prometheus.GaugeVec

	// Presence metrics
	RoomsTracked *prometheus.GaugeVec

	// Limiter metrics
	CounterEntries *prometheus.GaugeVec
	CountersSwept  *prometheus.CounterVec

	// Flag metrics
	FlagRefreshes     prometheus.Counter
	FlagRefreshErrors prometheus.Counter
}

// New creates a collector with all metrics registered on reg.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		ConnectionsActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "socketgate",
				Name:      "connections_active",
				Help:      "Number of currently connected sockets",
			},
			[]string{"namespace"},
		),
		EventsReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "socketgate",
				Name:      "events_received_total",
				Help:      "Total inbound event frames, before admission",
			},
			[]string{"namespace"},
		),
		EventsThrottled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "socketgate",
				Name:      "events_throttled_total",
				Help:      "Events rejected by the burst limiter",
			},
			[]string{"namespace", "scope"},
		),
		EventsDisabled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "socketgate",
				Name:      "events_disabled_total",
				Help:      "Events rejected while the bridge was disabled",
			},
			[]string{"namespace"},
		),
		BridgeEnabled: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "socketgate",
				Name:      "bridge_enabled",
				Help:      "Whether the bridge is admitting events (1) or not (0)",
			},
			[]string{"namespace"},
		),
		RoomsTracked: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "socketgate",
				Name:      "rooms_tracked",
				Help:      "Rooms with at least one member",
			},
			[]string{"namespace"},
		),
		CounterEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "socketgate",
				Name:      "limiter_counters",
				Help:      "Tracked limiter counters per scope",
			},
			[]string{"namespace", "scope"},
		),
		CountersSwept: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "socketgate",
				Name:      "limiter_counters_swept_total",
				Help:      "Expired limiter counters removed by sweeps",
			},
			[]string{"namespace"},
		),
		FlagRefreshes: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "socketgate",
				Name:      "flag_refreshes_total",
				Help:      "Bridge flag refresh attempts",
			},
		),
		FlagRefreshErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "socketgate",
				Name:      "flag_refresh_errors_total",
				Help:      "Bridge flag refreshes that fell back to the previous value",
			},
		),
	}
}

// BridgeSink returns a telemetry sink recording rejections for one namespace.
func (c *Collector) BridgeSink(namespace string) ports.TelemetrySink {
	return ports.TelemetryFunc(func(event bridge.TelemetryEvent) {
		switch event.Type {
		case bridge.TelemetryThrottled:
			c.EventsThrottled.WithLabelValues(namespace, string(event.Scope)).Inc()
		case bridge.TelemetryDisabled:
			c.EventsDisabled.WithLabelValues(namespace).Inc()
		}
	})
}
