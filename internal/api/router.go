package api

import (
	"log"
	"net/http"
	"time"

	"gridpath/internal/render"
	"gridpath/internal/sim"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/invopop/jsonschema"
)

// EngineInterface defines the simulation methods used by the API.
// This interface enables mocking for tests without spinning up the tick loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// Snapshot returns the latest immutable snapshot
	Snapshot() *sim.Snapshot
	// Enqueue queues a command for the next tick
	Enqueue(cmd sim.Command) error
	// RecentEvents returns up to n of the newest event-log entries
	RecentEvents(n int) []sim.Event
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the simulation (required)
	Engine EngineInterface

	// Renderer draws frames for /api/frame.png. If nil, a new one is created.
	Renderer *render.Renderer

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, localhost origins are allowed.
	CORSOrigins []string

	// StaticFilesDir is an optional directory served under /ui/.
	StaticFilesDir string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine   EngineInterface
	renderer *render.Renderer
	schema   map[string]*jsonschema.Schema
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// The only background work it may start is the rate limiter cleanup loop when
// no RateLimiter is supplied. No listeners are opened, so it is safe to use
// with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	schema, err := BuildSchemas()
	if err != nil {
		log.Printf("⚠️ Schema generation failed: %v", err)
	}

	h := &routerHandlers{
		engine:   cfg.Engine,
		renderer: renderer,
		schema:   schema,
	}

	r.Route("/api", func(r chi.Router) {
		// Simulation state
		r.Get("/state", h.handleGetState)
		r.Get("/grid", h.handleGetGrid)
		r.Get("/frame.png", h.handleGetFrame)
		r.Get("/events", h.handleGetEvents)
		r.Get("/schema", h.handleGetSchema)

		// Commands
		r.Post("/obstacle", h.handleToggleObstacle)
		r.Post("/path", h.handleRequestPath)
		r.Post("/clear", h.handleClearObstacles)
		r.Post("/mode", h.handleSetMode)
	})

	if cfg.StaticFilesDir != "" {
		r.Handle("/ui/*", http.StripPrefix("/ui/", http.FileServer(http.Dir(cfg.StaticFilesDir))))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/ui/", http.StatusFound)
		})
	} else {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/api/state", http.StatusFound)
		})
	}

	return r
}

// metricsMiddleware records latency per route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
