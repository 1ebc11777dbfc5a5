package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"gridpath/internal/sim"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-cell or per-IP labels)
var (
	// Simulation metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Time spent in a simulation tick",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	searchStepsPerTick = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_search_steps_per_tick",
		Help:    "Queue pops performed in a tick",
		Buckets: []float64{1, 4, 16, 64, 256, 1024},
	})

	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_searches_total",
		Help: "Finished searches by result",
	}, []string{"result"}) // Bounded: "found", "unreachable"

	searchVisited = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_search_visited_nodes",
		Help:    "Nodes finalised by a finished search",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	pathLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_path_length_nodes",
		Help:    "Nodes in a found path",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	obstacleCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_obstacle_count",
		Help: "Current number of obstacle cells",
	})

	commandsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_commands_total",
		Help: "Commands applied by the simulation",
	})

	commandsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_commands_rejected_total",
		Help: "Commands rejected before reaching the simulation",
	})

	renderDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "render_frame_duration_seconds",
		Help:    "Time spent rendering and encoding a frame",
		Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1},
	})

	// Event log metrics
	eventLogTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_total",
		Help: "Total events logged",
	})

	eventLogDropped = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "event_log_dropped",
		Help: "Events dropped due to rate limiting or buffer overrun",
	})

	// Abuse metrics. Label values are a fixed set.
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"

	// HTTP metrics, labelled by route pattern
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route pattern, not the full URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket broadcasts sent",
	})

	wsCommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_commands_total",
		Help: "Commands received over WebSocket",
	}, []string{"result"}) // Bounded: "accepted", "rejected", "invalid"
)

// ObservabilityConfig controls the pprof and metrics listener.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // forced to localhost unless ALLOW_DEBUG_EXTERNAL=true
	BasicAuthUser string // empty disables auth
	BasicAuthPass string
}

// DefaultObservabilityConfig enables the server on localhost:6060 without auth.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only
	}
}

// ObservabilityFromEnv overlays DEBUG_BASIC_AUTH_USER and DEBUG_BASIC_AUTH_PASS.
func ObservabilityFromEnv(cfg ObservabilityConfig) ObservabilityConfig {
	if u := os.Getenv("DEBUG_BASIC_AUTH_USER"); u != "" {
		cfg.BasicAuthUser = u
		cfg.BasicAuthPass = os.Getenv("DEBUG_BASIC_AUTH_PASS")
	}
	return cfg
}

// DebugHandler builds the pprof, metrics and health mux.
func DebugHandler(cfg ObservabilityConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

		mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	if cfg.BasicAuthUser != "" {
		return basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}
	return mux
}

// StartDebugServer starts the internal observability server.
// It binds to localhost unless ALLOW_DEBUG_EXTERNAL=true.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	handler := DebugHandler(cfg)

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// basicAuthMiddleware rejects requests without the configured credentials.
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick is registered as the engine's tick callback.
func RecordTick(stats sim.TickStats) {
	tickDuration.Observe(stats.Duration.Seconds())
	if stats.Steps > 0 {
		searchStepsPerTick.Observe(float64(stats.Steps))
	}
	obstacleCount.Set(float64(stats.Obstacles))
	commandsTotal.Add(float64(stats.Commands))
	commandsRejected.Add(float64(stats.Rejected))
}

// RecordSearch is registered as the engine's search callback.
func RecordSearch(outcome sim.SearchOutcome) {
	searchVisited.Observe(float64(outcome.Visited))
	if outcome.Found {
		searchesTotal.WithLabelValues("found").Inc()
		pathLength.Observe(float64(outcome.PathLength))
		return
	}
	searchesTotal.WithLabelValues("unreachable").Inc()
}

// RecordRender observes the time spent drawing one PNG frame.
func RecordRender(duration time.Duration) {
	renderDuration.Observe(duration.Seconds())
}

// UpdateEventLogStats mirrors the event log counters.
func UpdateEventLogStats(total, dropped uint64) {
	eventLogTotal.Set(float64(total))
	eventLogDropped.Set(float64(dropped))
}

// RecordConnectionRejected counts a refused request or upgrade by reason.
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest observes one API request.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, http.StatusText(status)).Inc()
}

// UpdateWSConnections sets the live client gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages counts one inbound WebSocket message.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// RecordWSCommand counts a command received over WebSocket.
func RecordWSCommand(result string) {
	wsCommandsTotal.WithLabelValues(result).Inc()
}
