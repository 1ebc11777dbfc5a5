package agent

import (
	"math"
	"testing"

	"gridpath/internal/grid"
)

func TestFollowerReferenceScenario(t *testing.T) {
	f := NewFollower(grid.Point{}, 2.5, 1)
	f.Assign([]grid.Point{{X: 10, Y: 0}})

	for i := 0; i < 4; i++ {
		if a := f.Update(); a.Reached {
			t.Fatalf("update %d: should still be travelling", i+1)
		}
	}
	if pos := f.Position(); math.Abs(pos.X-10) > 1e-9 || pos.Y != 0 {
		t.Errorf("after 4 updates expected x=10, got %+v", pos)
	}
	if f.Cursor() != 0 {
		t.Errorf("cursor should advance on the snap update, got %d", f.Cursor())
	}

	a := f.Update()
	if !a.Reached || !a.Done || a.Index != 0 {
		t.Errorf("expected arrival at final waypoint, got %+v", a)
	}
	if f.Cursor() != 1 || !f.Idle() {
		t.Errorf("expected idle with cursor 1, got cursor %d", f.Cursor())
	}
	if f.Position() != (grid.Point{X: 10, Y: 0}) {
		t.Errorf("position should snap exactly, got %+v", f.Position())
	}
}

func TestFollowerEmptyPathIsNoop(t *testing.T) {
	start := grid.Point{X: 3, Y: 4}
	f := NewFollower(start, 2.5, 1)

	f.Assign(nil)
	for i := 0; i < 3; i++ {
		if a := f.Update(); a != (Arrival{}) {
			t.Fatalf("unexpected arrival %+v", a)
		}
	}
	if f.Position() != start || !f.Idle() || f.Remaining() != 0 {
		t.Errorf("empty path must not move the agent: %+v", f.Position())
	}
}

func TestFollowerWalksWholePath(t *testing.T) {
	f := NewFollower(grid.Point{X: 10, Y: 10}, 2.5, 1)
	path := []grid.Point{{X: 10, Y: 10}, {X: 30, Y: 10}, {X: 50, Y: 30}}
	f.Assign(path)

	var reached []int
	for i := 0; i < 1000 && !f.Idle(); i++ {
		if a := f.Update(); a.Reached {
			reached = append(reached, a.Index)
			if a.Done != (a.Index == len(path)-1) {
				t.Errorf("Done flag wrong at index %d", a.Index)
			}
		}
	}

	if len(reached) != 3 || reached[0] != 0 || reached[1] != 1 || reached[2] != 2 {
		t.Fatalf("expected waypoints 0,1,2 in order, got %v", reached)
	}
	if f.Position() != path[2] {
		t.Errorf("expected to finish on the last waypoint, got %+v", f.Position())
	}
}

func TestFollowerAssignResetsCursor(t *testing.T) {
	f := NewFollower(grid.Point{}, 2.5, 1)
	f.Assign([]grid.Point{{}, {X: 1}, {X: 2}})
	f.Update()
	f.Update()
	if f.Cursor() != 2 {
		t.Fatalf("expected cursor 2, got %d", f.Cursor())
	}

	f.Assign([]grid.Point{{X: 40}})
	if f.Cursor() != 0 || f.Remaining() != 1 {
		t.Errorf("Assign must reset cursor, got %d (remaining %d)", f.Cursor(), f.Remaining())
	}
}

func TestFollowerDefaults(t *testing.T) {
	f := NewFollower(grid.Point{}, 0, -1)
	f.Assign([]grid.Point{{X: 100}})
	f.Update()
	if got := f.Position().X; got != DefaultSpeed {
		t.Errorf("expected default speed step %v, got %v", DefaultSpeed, got)
	}

	f.Teleport(grid.Point{X: 7, Y: 7})
	if !f.Idle() || f.Position() != (grid.Point{X: 7, Y: 7}) {
		t.Error("Teleport should drop the path and move the agent")
	}
}

func TestFollowerDoesNotOvershoot(t *testing.T) {
	f := NewFollower(grid.Point{}, 2.5, 1)
	f.Assign([]grid.Point{{X: 1.2}})

	if a := f.Update(); a.Reached {
		t.Fatal("1.2 is outside epsilon, first update should only move")
	}
	if got := f.Position().X; got != 1.2 {
		t.Fatalf("step should stop on the waypoint, got %v", got)
	}
	if a := f.Update(); !a.Done {
		t.Errorf("second update should arrive, got %+v", a)
	}
}
