package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"gridpath/internal/sim"
)

// CellRequest is the body of the obstacle and path endpoints.
type CellRequest struct {
	X *int `json:"x" jsonschema:"required,minimum=0"`
	Y *int `json:"y" jsonschema:"required,minimum=0"`
}

// ModeRequest is the body of the mode endpoint.
type ModeRequest struct {
	Mode string `json:"mode" jsonschema:"required,enum=oneshot,enum=stepped"`
}

// GridInfo describes the grid layout.
type GridInfo struct {
	Cols      int     `json:"cols"`
	Rows      int     `json:"rows"`
	Spacing   float64 `json:"spacing"`
	Obstacles []int   `json:"obstacles"`
}

const (
	defaultEventLimit = 100
	maxEventLimit     = sim.EventBufferSize
)

// Handler methods for routerHandlers

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Snapshot())
}

func (h *routerHandlers) handleGetGrid(w http.ResponseWriter, r *http.Request) {
	snap := h.engine.Snapshot()
	writeJSON(w, GridInfo{
		Cols:      snap.Cols,
		Rows:      snap.Rows,
		Spacing:   snap.Spacing,
		Obstacles: snap.Obstacles,
	})
}

func (h *routerHandlers) handleToggleObstacle(w http.ResponseWriter, r *http.Request) {
	h.handleCellCommand(w, r, sim.ToggleObstacle)
}

func (h *routerHandlers) handleRequestPath(w http.ResponseWriter, r *http.Request) {
	h.handleCellCommand(w, r, sim.RequestPath)
}

func (h *routerHandlers) handleCellCommand(w http.ResponseWriter, r *http.Request, build func(x, y int) sim.Command) {
	var req CellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, "x and y are required", http.StatusBadRequest)
		return
	}

	h.enqueue(w, build(*req.X, *req.Y))
}

func (h *routerHandlers) handleClearObstacles(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, sim.ClearObstacles())
}

func (h *routerHandlers) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}
	mode, err := sim.ParseMode(req.Mode)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.enqueue(w, sim.SetMode(mode))
}

func (h *routerHandlers) enqueue(w http.ResponseWriter, cmd sim.Command) {
	if err := h.engine.Enqueue(cmd); err != nil {
		writeError(w, err.Error(), commandErrorStatus(err))
		return
	}
	writeJSON(w, map[string]bool{"success": true})
}

// commandErrorStatus maps engine errors to HTTP status codes.
func commandErrorStatus(err error) int {
	switch {
	case errors.Is(err, sim.ErrQueueFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, sim.ErrOutOfBounds), errors.Is(err, sim.ErrUnknownCommand):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *routerHandlers) handleGetFrame(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.EncodePNG(w, h.engine.Snapshot()); err != nil {
		writeError(w, "Failed to render frame", http.StatusInternalServerError)
		return
	}
	RecordRender(time.Since(start))
}

func (h *routerHandlers) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxEventLimit)
	}

	events := h.engine.RecentEvents(limit)
	if events == nil {
		events = []sim.Event{}
	}
	writeJSON(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
	})
}

func (h *routerHandlers) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.schema)
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
