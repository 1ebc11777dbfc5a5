package grid

import (
	"errors"
	"math"
	"testing"
)

const eps = 1e-9

func TestNewGraphRejectsEmpty(t *testing.T) {
	tests := []struct {
		name       string
		cols, rows int
		spacing    float64
		want       error
	}{
		{"zero cols", 0, 5, 1, ErrEmptyGrid},
		{"zero rows", 5, 0, 1, ErrEmptyGrid},
		{"negative", -1, -1, 1, ErrEmptyGrid},
		{"zero spacing", 3, 3, 0, ErrInvalidSpacing},
		{"nan spacing", 3, 3, math.NaN(), ErrInvalidSpacing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGraph(tt.cols, tt.rows, tt.spacing)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if g != nil {
				t.Fatal("expected nil graph on error")
			}
		})
	}
}

func TestFromPixelsIntegerDivision(t *testing.T) {
	g, err := FromPixels(810, 605, 20)
	if err != nil {
		t.Fatalf("FromPixels: %v", err)
	}
	if g.Cols != 40 || g.Rows != 30 {
		t.Errorf("expected 40x30, got %dx%d", g.Cols, g.Rows)
	}

	if _, err := FromPixels(10, 10, 20); !errors.Is(err, ErrEmptyGrid) {
		t.Errorf("expected ErrEmptyGrid for a sub-cell area, got %v", err)
	}
	if _, err := FromPixels(100, 100, 0); !errors.Is(err, ErrInvalidSpacing) {
		t.Errorf("expected ErrInvalidSpacing, got %v", err)
	}
}

func TestEdgeCounts(t *testing.T) {
	g, err := NewGraph(5, 4, 2)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		x, y      int
		axis      int
		diagonals int
	}{
		{"corner", 0, 0, 2, 1},
		{"edge", 2, 0, 3, 2},
		{"interior", 2, 2, 4, 4},
		{"far corner", 4, 3, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			axis, diag := 0, 0
			for _, e := range g.Neighbors(g.Index(tt.x, tt.y)) {
				switch {
				case math.Abs(e.Cost-2) < eps:
					axis++
				case math.Abs(e.Cost-2*math.Sqrt2) < eps:
					diag++
				default:
					t.Errorf("unexpected edge cost %f", e.Cost)
				}
			}
			if axis != tt.axis || diag != tt.diagonals {
				t.Errorf("expected %d axis + %d diagonal edges, got %d + %d", tt.axis, tt.diagonals, axis, diag)
			}
		})
	}
}

func TestGraphSymmetric(t *testing.T) {
	g, err := NewGraph(6, 5, 1.5)
	if err != nil {
		t.Fatal(err)
	}

	for from := 0; from < g.Len(); from++ {
		for _, e := range g.Neighbors(from) {
			found := false
			for _, back := range g.Neighbors(e.To) {
				if back.To == from {
					found = true
					if math.Abs(back.Cost-e.Cost) > eps {
						t.Errorf("asymmetric cost %d<->%d: %f vs %f", from, e.To, e.Cost, back.Cost)
					}
				}
			}
			if !found {
				t.Errorf("missing reverse edge %d->%d", e.To, from)
			}
		}
	}
}

func TestIndexBijective(t *testing.T) {
	g, err := NewGraph(7, 3, 1)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[int]bool)
	for y := 0; y < g.Rows; y++ {
		for x := 0; x < g.Cols; x++ {
			idx := g.Index(x, y)
			if seen[idx] {
				t.Fatalf("index %d produced twice", idx)
			}
			seen[idx] = true
			bx, by := g.Coord(idx)
			if bx != x || by != y {
				t.Errorf("Coord(%d) = (%d,%d), want (%d,%d)", idx, bx, by, x, y)
			}
		}
	}
	if len(seen) != g.Len() {
		t.Errorf("expected %d indices, got %d", g.Len(), len(seen))
	}
}

func TestCenterAndCellAt(t *testing.T) {
	g, err := NewGraph(40, 30, 20)
	if err != nil {
		t.Fatal(err)
	}

	idx := g.Index(5, 5)
	c := g.Center(idx)
	if c.X != 110 || c.Y != 110 {
		t.Errorf("expected centre (110,110), got (%v,%v)", c.X, c.Y)
	}
	if got := g.CellAt(c); got != idx {
		t.Errorf("CellAt(centre) = %d, want %d", got, idx)
	}
	if got := g.CellAt(Point{X: -5, Y: 10_000}); got != g.Index(0, 29) {
		t.Errorf("CellAt should clamp, got %d", got)
	}
	if g.Width() != 800 || g.Height() != 600 {
		t.Errorf("unexpected area %vx%v", g.Width(), g.Height())
	}
}

func TestMask(t *testing.T) {
	m := NewMask(9)

	if m.Blocked(4) {
		t.Fatal("new mask should be clear")
	}
	if !m.Toggle(4) {
		t.Error("Toggle should return true when blocking")
	}
	m.Set(2, true)
	m.Set(2, true) // idempotent
	if m.Count() != 2 {
		t.Errorf("expected count 2, got %d", m.Count())
	}

	cells := m.Cells()
	if len(cells) != 2 || cells[0] != 2 || cells[1] != 4 {
		t.Errorf("unexpected cells %v", cells)
	}

	snap := m.Snapshot()
	m.Toggle(4)
	if !snap[4] {
		t.Error("snapshot must not alias the mask")
	}

	m.Clear()
	if m.Count() != 0 || m.Blocked(2) {
		t.Error("Clear should remove every obstacle")
	}
}
