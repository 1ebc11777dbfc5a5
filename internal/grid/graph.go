// Package grid builds the implicit 8-connected grid graph and the obstacle
// mask consulted by the shortest-path engine.
//
// Cells are addressed by a flat index idx = y*cols + x. Edges are generated
// once at build time and never change; obstacle state lives in Mask and is
// checked by the search when an edge is traversed.
package grid

import (
	"errors"
	"math"
)

var (
	// ErrEmptyGrid is returned when the requested dimensions produce no nodes.
	ErrEmptyGrid = errors.New("grid: dimensions produce zero nodes")
	// ErrInvalidSpacing is returned for a non-positive cell spacing.
	ErrInvalidSpacing = errors.New("grid: cell spacing must be positive")
)

// Edge is a directed connection to an 8-neighbour.
type Edge struct {
	To   int
	Cost float64
}

// Point is a continuous position in world units.
type Point struct {
	X, Y float64
}

// Graph is the adjacency list of a cols×rows grid.
// It is immutable after NewGraph returns.
type Graph struct {
	Cols, Rows int
	Spacing    float64

	adjacency [][]Edge
}

// neighbour offsets, dx outer and dy inner
var offsets = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// NewGraph builds the grid graph. Axis neighbours cost spacing, diagonal
// neighbours cost spacing*√2.
func NewGraph(cols, rows int, spacing float64) (*Graph, error) {
	if cols <= 0 || rows <= 0 {
		return nil, ErrEmptyGrid
	}
	if spacing <= 0 || math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		return nil, ErrInvalidSpacing
	}

	g := &Graph{
		Cols:      cols,
		Rows:      rows,
		Spacing:   spacing,
		adjacency: make([][]Edge, cols*rows),
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			from := g.Index(x, y)
			edges := make([]Edge, 0, len(offsets))
			for _, d := range offsets {
				nx, ny := x+d[0], y+d[1]
				if !g.InBounds(nx, ny) {
					continue
				}
				cost := math.Sqrt(float64(d[0]*d[0]+d[1]*d[1])) * spacing
				edges = append(edges, Edge{To: g.Index(nx, ny), Cost: cost})
			}
			g.adjacency[from] = edges
		}
	}

	return g, nil
}

// FromPixels derives the grid resolution from a pixel area. Any remainder of
// width or height that does not fill a whole cell is left unused.
func FromPixels(width, height, spacing int) (*Graph, error) {
	if spacing <= 0 {
		return nil, ErrInvalidSpacing
	}
	return NewGraph(width/spacing, height/spacing, float64(spacing))
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.adjacency)
}

// Index maps a grid coordinate to its node index.
func (g *Graph) Index(x, y int) int {
	return y*g.Cols + x
}

// Coord maps a node index back to its grid coordinate.
func (g *Graph) Coord(idx int) (x, y int) {
	return idx % g.Cols, idx / g.Cols
}

// InBounds reports whether (x, y) lies within [0,cols)×[0,rows).
func (g *Graph) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Cols && y < g.Rows
}

// Valid reports whether idx addresses a node.
func (g *Graph) Valid(idx int) bool {
	return idx >= 0 && idx < len(g.adjacency)
}

// Neighbors returns the outgoing edges of idx. The slice is shared and must
// not be modified.
func (g *Graph) Neighbors(idx int) []Edge {
	return g.adjacency[idx]
}

// Center returns the continuous centre of a cell.
func (g *Graph) Center(idx int) Point {
	x, y := g.Coord(idx)
	half := g.Spacing / 2
	return Point{
		X: float64(x)*g.Spacing + half,
		Y: float64(y)*g.Spacing + half,
	}
}

// CellAt returns the index of the cell containing a continuous position,
// clamped to the grid.
func (g *Graph) CellAt(p Point) int {
	x := int(p.X / g.Spacing)
	y := int(p.Y / g.Spacing)
	x = max(0, min(g.Cols-1, x))
	y = max(0, min(g.Rows-1, y))
	return g.Index(x, y)
}

// Width and Height return the covered area in world units.
func (g *Graph) Width() float64  { return float64(g.Cols) * g.Spacing }
func (g *Graph) Height() float64 { return float64(g.Rows) * g.Spacing }
