package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/socketgate/config"
)

// RouterDeps contains dependencies for the HTTP router.
type RouterDeps struct {
	Namespaces []*Namespace
	Logger     zerolog.Logger
	// Gatherer serves /metrics when MetricsPath is non-empty.
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// NewRouter builds the gateway's HTTP surface: one upgrade endpoint per
// namespace under /realtime/, a health probe, and optional metrics.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	byName := make(map[string]*Namespace, len(deps.Namespaces))
	for _, ns := range deps.Namespaces {
		byName[ns.Name()] = ns
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.Gatherer != nil && deps.MetricsPath != "" {
		r.Handle(deps.MetricsPath, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/realtime/{namespace}", func(w http.ResponseWriter, req *http.Request) {
		ns, ok := byName[chi.URLParam(req, "namespace")]
		if !ok {
			http.NotFound(w, req)
			return
		}
		ns.ServeHTTP(w, req)
	})

	return r
}

// NewServer builds the http.Server for the router.
func NewServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: handler,
		// No global read/write timeouts: they would kill long-lived
		// websocket connections. Per-frame deadlines live in the socket.
	}
}
