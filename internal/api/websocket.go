package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"gridpath/internal/sim"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal is the maximum number of WebSocket connections allowed
	MaxWSConnectionsTotal = 200

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 8

	// maxWSMessageSize caps client command frames.
	maxWSMessageSize = 512

	writeWait = 2 * time.Second
)

// EventSimState is the broadcast event carrying a snapshot.
const EventSimState = "sim:state"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}

		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// WSCommand is a client message on /ws.
type WSCommand struct {
	Type string `json:"type" jsonschema:"required,enum=toggle,enum=path,enum=clear,enum=mode"`
	X    int    `json:"x,omitempty"`
	Y    int    `json:"y,omitempty"`
	Mode string `json:"mode,omitempty" jsonschema:"enum=oneshot,enum=stepped"`
}

// Command converts the message into a simulation command.
func (c WSCommand) Command() (sim.Command, bool) {
	switch strings.ToLower(c.Type) {
	case "toggle":
		return sim.ToggleObstacle(c.X, c.Y), true
	case "path":
		return sim.RequestPath(c.X, c.Y), true
	case "clear":
		return sim.ClearObstacles(), true
	case "mode":
		mode, err := sim.ParseMode(c.Mode)
		if err != nil {
			return sim.Command{}, false
		}
		return sim.SetMode(mode), true
	default:
		return sim.Command{}, false
	}
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// WebSocketHub fans snapshots out to clients and forwards their commands to
// the engine. Only Run writes to connections.
type WebSocketHub struct {
	engine     EngineInterface
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(engine EngineInterface) *WebSocketHub {
	return &WebSocketHub{
		engine:     engine,
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 16),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// Run owns the client set until Stop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(conn)
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Client disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.removeLocked(conn)
				}
			}
			UpdateWSConnections(len(h.clients))
			h.mu.Unlock()
			IncrementWSMessages()

		case <-h.done:
			h.mu.Lock()
			for conn := range h.clients {
				h.removeLocked(conn)
			}
			h.mu.Unlock()
			UpdateWSConnections(0)
			return
		}
	}
}

// removeLocked closes conn and frees its IP slot. Caller holds mu.
func (h *WebSocketHub) removeLocked(conn *websocket.Conn) {
	client, ok := h.clients[conn]
	if !ok {
		return
	}
	h.wsLimiter.Release(client.ip)
	delete(h.clients, conn)
	conn.Close()
}

// Stop closes all connections and ends Run and the broadcast loop.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast sends an event to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop publishes each new snapshot at most once per interval.
func (h *WebSocketHub) StartBroadcastLoop(interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		sent := false
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}
			snap := h.engine.Snapshot()
			if sent && snap.Sequence == lastSeq {
				continue
			}
			lastSeq, sent = snap.Sequence, true
			h.Broadcast(EventSimState, snap)
		}
	}()
}

// HandleWebSocket upgrades the connection after checking connection limits.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	h.mu.RLock()
	totalConnections := len(h.clients)
	h.mu.RUnlock()

	if totalConnections >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", totalConnections)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip)
		return
	}
	conn.SetReadLimit(maxWSMessageSize)

	select {
	case h.register <- &wsClient{conn: conn, ip: ip}:
	case <-h.done:
		h.wsLimiter.Release(ip)
		conn.Close()
		return
	}

	go h.readLoop(conn, ip)
}

// readLoop forwards client commands to the engine until the connection fails.
func (h *WebSocketHub) readLoop(conn *websocket.Conn, ip string) {
	defer func() {
		select {
		case h.unregister <- conn:
		case <-h.done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg WSCommand
		if err := json.Unmarshal(message, &msg); err != nil {
			RecordWSCommand("invalid")
			continue
		}
		cmd, ok := msg.Command()
		if !ok {
			RecordWSCommand("invalid")
			continue
		}
		if err := h.engine.Enqueue(cmd); err != nil {
			log.Printf("⚠️ WebSocket command from %s rejected: %v", ip, err)
			RecordWSCommand("rejected")
			continue
		}
		RecordWSCommand("accepted")
	}
}
