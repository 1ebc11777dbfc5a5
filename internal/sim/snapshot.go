package sim

import "time"

// AgentSnapshot is the agent state for rendering.
type AgentSnapshot struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Cell      int     `json:"cell"`
	Cursor    int     `json:"cursor"`
	Remaining int     `json:"remaining"`
	Idle      bool    `json:"idle"`
}

// SearchSnapshot describes the current or last search.
type SearchSnapshot struct {
	State    string  `json:"state"`
	Source   int     `json:"source"`
	Goal     int     `json:"goal"`
	Steps    int     `json:"steps"`
	Frontier int     `json:"frontier"`
	Cost     float64 `json:"cost"`
}

// Snapshot is an immutable copy of the simulation state, published once per
// tick. Slices are owned by the snapshot and never modified after publish.
type Snapshot struct {
	Sequence  uint64    `json:"sequence"`
	Tick      uint64    `json:"tick"`
	Timestamp time.Time `json:"timestamp"`

	Cols    int     `json:"cols"`
	Rows    int     `json:"rows"`
	Spacing float64 `json:"spacing"`
	Mode    string  `json:"mode"`

	Mask      []bool `json:"-"`         // per-cell obstacle flags
	Obstacles []int  `json:"obstacles"` // blocked indices, ascending
	Visited   []int  `json:"visited"`   // finalisation order
	Path      []int  `json:"path"`      // path being followed

	Agent  AgentSnapshot  `json:"agent"`
	Search SearchSnapshot `json:"search"`
}

// Blocked reports whether a cell was an obstacle when the snapshot was taken.
func (s *Snapshot) Blocked(idx int) bool {
	return idx >= 0 && idx < len(s.Mask) && s.Mask[idx]
}

// Coord converts a cell index to grid coordinates.
func (s *Snapshot) Coord(idx int) (x, y int) {
	return idx % s.Cols, idx / s.Cols
}

// Center returns the continuous centre of a cell.
func (s *Snapshot) Center(idx int) (float64, float64) {
	x, y := s.Coord(idx)
	half := s.Spacing / 2
	return float64(x)*s.Spacing + half, float64(y)*s.Spacing + half
}

// TickStats summarises one tick for metrics.
type TickStats struct {
	Tick       uint64
	Duration   time.Duration
	Commands   int
	Rejected   int
	Steps      int
	Obstacles  int
	Visited    int
	PathLength int
}

// SearchOutcome is reported when a search reaches a terminal state.
type SearchOutcome struct {
	Source     int
	Goal       int
	Found      bool
	Steps      int
	Visited    int
	PathLength int
	Cost       float64
}
