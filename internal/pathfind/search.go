// Package pathfind implements Dijkstra's algorithm over a grid.Graph.
//
// It exposes two entry points:
//
//   - ShortestPath: run the search to completion and get a Result.
//   - Stepper: advance the search one queue pop at a time to drive a
//     visualisation from an external tick.
//
// Both share the same step routine, so a Stepper run to completion yields the
// same path and the same visited order as ShortestPath.
package pathfind

import (
	"errors"

	"gridpath/internal/grid"
)

// NoNode is the predecessor sentinel.
const NoNode = -1

// ErrNodeOutOfRange is returned when a source or goal index is not a node.
var ErrNodeOutOfRange = errors.New("pathfind: node index out of range")

// Blocker reports whether a node is currently an obstacle. *grid.Mask
// satisfies it.
type Blocker interface {
	Blocked(idx int) bool
}

type noObstacles struct{}

func (noObstacles) Blocked(int) bool { return false }

// Result contains the outcome of a search.
type Result struct {
	Path    []int   // source→goal inclusive, nil if unreachable
	Cost    float64 // total edge cost of Path
	Visited []int   // nodes in the order they were finalised
	Found   bool
}

// ShortestPath computes the shortest source→goal path. An unreachable goal is
// not an error: it yields Found == false and an empty path. When source equals
// goal the path is the single node [source] with cost 0.
func ShortestPath(g *grid.Graph, mask Blocker, source, goal int) (Result, error) {
	s := NewStepper(g, mask)
	if err := s.Init(source, goal); err != nil {
		return Result{}, err
	}
	s.RunToCompletion()
	return s.Result(), nil
}

// PathCost sums the edge costs along path. It returns false when two
// consecutive entries are not neighbours.
func PathCost(g *grid.Graph, path []int) (float64, bool) {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		found := false
		for _, e := range g.Neighbors(path[i]) {
			if e.To == path[i+1] {
				total += e.Cost
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return total, true
}
