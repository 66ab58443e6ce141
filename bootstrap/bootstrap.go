// Package bootstrap wires all dependencies and starts the gateway.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/artpar/socketgate/adapters/clock"
	"github.com/artpar/socketgate/adapters/idgen"
	"github.com/artpar/socketgate/adapters/memory"
	"github.com/artpar/socketgate/adapters/metrics"
	"github.com/artpar/socketgate/app"
	"github.com/artpar/socketgate/config"
	"github.com/artpar/socketgate/domain/ratelimit"
	"github.com/artpar/socketgate/flags"
	"github.com/artpar/socketgate/ports"
	"github.com/artpar/socketgate/web"
)

// Namespaces served by the gateway. Each gets fully isolated membership and
// rate-limit state.
var Namespaces = []string{"pods", "guilds", "rooms"}

// minSweepInterval bounds how often expired limiter counters are reclaimed.
const minSweepInterval = 30 * time.Second

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Flags      *flags.Client
	Metrics    *metrics.Collector
	HTTPServer *http.Server

	namespaces []*web.Namespace
	limiters   map[string]*app.Limiter
	stopSweep  chan struct{}
}

// New creates and initializes the application from the given configuration.
func New(cfg *config.Config) (*App, error) {
	logger := setupLogger(cfg.Logging)

	logger.Info().Msg("initializing socketgate")

	a := &App{
		Logger:    logger,
		Config:    cfg,
		limiters:  make(map[string]*app.Limiter, len(Namespaces)),
		stopSweep: make(chan struct{}),
	}

	var gatherer prometheus.Gatherer
	if cfg.Metrics.Enabled {
		registry := prometheus.NewRegistry()
		a.Metrics = metrics.New(registry)
		gatherer = registry
		logger.Info().Msg("prometheus metrics enabled")
	}

	a.initFlags()
	a.initNamespaces()

	router := web.NewRouter(web.RouterDeps{
		Namespaces:  a.namespaces,
		Logger:      logger,
		Gatherer:    gatherer,
		MetricsPath: cfg.Metrics.Path,
	})
	a.HTTPServer = web.NewServer(cfg.Server, router)

	return a, nil
}

// Run starts the server and blocks until a signal or server error.
func (a *App) Run() error {
	if err := a.Flags.Watch(); err != nil {
		// Manual Refresh still works; don't fail startup over a watcher.
		a.Logger.Warn().Err(err).Msg("flag file watch unavailable")
	}

	go a.sweepLoop()

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Strs("namespaces", Namespaces).
			Bool("bridgeEnabled", a.Flags.IsBridgeEnabled()).
			Msg("starting realtime server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(a.stopSweep)
	a.Flags.Close()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
			return err
		}
	}

	a.Logger.Info().Msg("shutdown complete")
	return nil
}

func (a *App) initFlags() {
	var onRefresh func(error)
	if a.Metrics != nil {
		onRefresh = func(err error) {
			a.Metrics.FlagRefreshes.Inc()
			if err != nil {
				a.Metrics.FlagRefreshErrors.Inc()
			}
		}
	}

	a.Flags = flags.New(flags.Options{
		DefaultEnabled: a.Config.Bridge.Enabled,
		FlagFile:       a.Config.Bridge.FlagFile,
		Logger:         a.Logger,
		OnRefresh:      onRefresh,
	})
}

func (a *App) initNamespaces() {
	cfg := a.Config.Bridge
	clk := clock.Real{}
	ids := idgen.UUID{}
	enabled := a.Flags.IsBridgeEnabled()

	for _, name := range Namespaces {
		limiter := app.NewLimiter(app.LimiterConfig{
			Window:        cfg.Window,
			PerUser:       cfg.PerUser,
			PerRoom:       cfg.PerRoom,
			PerUserInRoom: cfg.PerUserInRoom,
		}, app.LimiterDeps{
			Users:     memory.NewCounterStore(),
			Rooms:     memory.NewCounterStore(),
			UserRooms: memory.NewCounterStore(),
			Clock:     clk,
		})
		a.limiters[name] = limiter

		var sinks []ports.TelemetrySink
		if a.Metrics != nil {
			sinks = append(sinks, a.Metrics.BridgeSink(name))
		}

		bridge := app.NewBridge(name, enabled, cfg.TrackedEvents, cfg.ExcludedEvents, app.BridgeDeps{
			Limiter:   limiter,
			Telemetry: sinks,
			Logger:    a.Logger,
		})
		presence := app.NewPresence(name, a.Logger)

		namespace := web.NewNamespace(name, bridge, presence, ids, a.Metrics, a.Logger)
		a.namespaces = append(a.namespaces, namespace)

		if a.Metrics != nil {
			setEnabledGauge(a.Metrics, name, enabled)
		}
	}

	// One flag subscription flips every namespace's bridge at once.
	a.Flags.OnChange(func(enabled bool) {
		for _, ns := range a.namespaces {
			ns.Bridge().SetEnabled(enabled)
			if a.Metrics != nil {
				setEnabledGauge(a.Metrics, ns.Name(), enabled)
			}
		}
	})
}

// sweepLoop periodically reclaims expired limiter counters so counter maps
// don't grow unbounded with ephemeral rooms and churned users.
func (a *App) sweepLoop() {
	interval := 2 * a.Config.Bridge.Window
	if interval < minSweepInterval {
		interval = minSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			total := 0
			for name, limiter := range a.limiters {
				removed := limiter.Sweep(now)
				total += removed
				if a.Metrics != nil {
					a.Metrics.CountersSwept.WithLabelValues(name).Add(float64(removed))
					users, rooms, userRooms := limiter.CounterSizes()
					a.Metrics.CounterEntries.WithLabelValues(name, string(ratelimit.ScopeUser)).Set(float64(users))
					a.Metrics.CounterEntries.WithLabelValues(name, string(ratelimit.ScopeRoom)).Set(float64(rooms))
					a.Metrics.CounterEntries.WithLabelValues(name, string(ratelimit.ScopeUserRoom)).Set(float64(userRooms))
				}
			}
			for _, ns := range a.namespaces {
				if a.Metrics != nil {
					a.Metrics.RoomsTracked.WithLabelValues(ns.Name()).Set(float64(ns.Presence().RoomCount()))
				}
			}
			if total > 0 {
				a.Logger.Debug().Int("removed", total).Msg("swept expired limiter counters")
			}

		case <-a.stopSweep:
			return
		}
	}
}

func setEnabledGauge(collector *metrics.Collector, namespace string, enabled bool) {
	value := 0.0
	if enabled {
		value = 1.0
	}
	collector.BridgeEnabled.WithLabelValues(namespace).Set(value)
}

func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
