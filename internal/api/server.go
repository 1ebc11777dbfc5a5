package api

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// ServerOptions configures NewServer.
type ServerOptions struct {
	// BroadcastInterval is how often snapshots are pushed over /ws.
	BroadcastInterval time.Duration
	// StaticFilesDir is an optional directory served under /ui/.
	StaticFilesDir string
}

// Server is the HTTP API server with WebSocket support.
type Server struct {
	engine      EngineInterface
	opts        ServerOptions
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates the API server. Background workers do not start until
// Start is called; use Router with httptest in tests.
func NewServer(engine EngineInterface, opts ServerOptions) *Server {
	s := &Server{
		engine:      engine,
		opts:        opts,
		wsHub:       NewWebSocketHub(engine),
		rateLimiter: NewIPRateLimiter(DefaultRateLimitConfig),
	}

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		RateLimiter:    s.rateLimiter,
		StaticFilesDir: opts.StaticFilesDir,
	})

	// The hub instance is needed here, so this route is not part of NewRouter.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start runs the hub and broadcast loop, then serves addr until Stop.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.opts.BroadcastInterval)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🧭 State: http://localhost%s/api/state  Frame: http://localhost%s/api/frame.png", addr, addr)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stop shuts down the listener and background workers.
func (s *Server) Stop(ctx context.Context) error {
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	return s.httpServer.Shutdown(ctx)
}
