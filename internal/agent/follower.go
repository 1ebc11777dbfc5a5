// Package agent moves a continuous position along a computed path.
package agent

import (
	"math"

	"gridpath/internal/grid"
)

// Reference movement parameters.
const (
	DefaultSpeed   = 2.5 // world units per update
	DefaultEpsilon = 1.0 // arrival radius
)

// Arrival describes what happened during one Update.
type Arrival struct {
	Reached bool // a waypoint was reached this update
	Index   int  // index of the reached waypoint
	Done    bool // the last waypoint was reached
}

// Follower advances a position toward the waypoints of a path at a fixed
// speed. It is not safe for concurrent use.
type Follower struct {
	position grid.Point
	speed    float64
	epsilon  float64

	path   []grid.Point
	cursor int
}

// NewFollower creates an idle follower at start. Non-positive speed or
// epsilon fall back to the reference values.
func NewFollower(start grid.Point, speed, epsilon float64) *Follower {
	if speed <= 0 {
		speed = DefaultSpeed
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Follower{
		position: start,
		speed:    speed,
		epsilon:  epsilon,
	}
}

// Assign replaces the path and resets the cursor in one step. A nil or empty
// path leaves the follower idle where it stands.
func (f *Follower) Assign(path []grid.Point) {
	f.path = path
	f.cursor = 0
}

// Update moves one tick toward the current waypoint. Within epsilon the
// position snaps to the waypoint and the cursor advances. A step never
// overshoots the waypoint, otherwise a remaining distance between epsilon and
// speed-epsilon would bounce around the target forever.
func (f *Follower) Update() Arrival {
	if f.cursor >= len(f.path) {
		return Arrival{}
	}

	target := f.path[f.cursor]
	dx := target.X - f.position.X
	dy := target.Y - f.position.Y
	length := math.Hypot(dx, dy)

	if length > f.epsilon {
		step := min(f.speed, length)
		f.position.X += dx / length * step
		f.position.Y += dy / length * step
		return Arrival{}
	}

	f.position = target
	reached := f.cursor
	f.cursor++
	return Arrival{
		Reached: true,
		Index:   reached,
		Done:    f.cursor == len(f.path),
	}
}

// Idle reports whether there is nothing left to follow.
func (f *Follower) Idle() bool {
	return f.cursor >= len(f.path)
}

// Position returns the current continuous position.
func (f *Follower) Position() grid.Point { return f.position }

// Cursor returns the index of the waypoint being approached.
func (f *Follower) Cursor() int { return f.cursor }

// Remaining returns the number of waypoints not yet reached.
func (f *Follower) Remaining() int {
	return max(0, len(f.path)-f.cursor)
}

// Teleport moves the follower and drops its path.
func (f *Follower) Teleport(p grid.Point) {
	f.position = p
	f.path = nil
	f.cursor = 0
}
