package pathfind

import (
	"container/heap"
	"math"

	"gridpath/internal/grid"
)

// State is the lifecycle of a steppable search.
type State uint8

const (
	Idle State = iota
	Running
	Found
	Unreachable
)

// String returns the state name used in snapshots and logs.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Found:
		return "found"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Terminal reports whether the search has finished.
func (s State) Terminal() bool {
	return s == Found || s == Unreachable
}

// Stepper runs Dijkstra one queue pop at a time so the frontier expansion
// can be driven by an external tick.
type Stepper struct {
	graph *grid.Graph
	mask  Blocker

	dist    []float64
	prev    []int
	queue   priorityQueue
	visited []int

	source, goal int
	state        State
	steps        int
	path         []int
	cost         float64
}

// NewStepper creates an idle stepper over g. The mask is read at traversal
// time, so obstacle changes made between steps are honoured.
func NewStepper(g *grid.Graph, mask Blocker) *Stepper {
	if mask == nil {
		mask = noObstacles{}
	}
	return &Stepper{
		graph:  g,
		mask:   mask,
		dist:   make([]float64, g.Len()),
		prev:   make([]int, g.Len()),
		source: NoNode,
		goal:   NoNode,
	}
}

// Init resets all search state and seeds the source. Calling Init while a
// search is running abandons it.
func (s *Stepper) Init(source, goal int) error {
	if !s.graph.Valid(source) || !s.graph.Valid(goal) {
		return ErrNodeOutOfRange
	}

	for i := range s.dist {
		s.dist[i] = math.Inf(1)
		s.prev[i] = NoNode
	}
	s.queue = s.queue[:0]
	s.visited = make([]int, 0, 64)
	s.path = nil
	s.cost = 0
	s.steps = 0

	s.source, s.goal = source, goal
	s.dist[source] = 0
	heap.Push(&s.queue, entry{node: source, cost: 0})
	s.state = Running
	return nil
}

// Step performs one pop-and-relax cycle, or detects termination when the
// queue is empty. It is a no-op outside the Running state.
func (s *Stepper) Step() State {
	if s.state != Running {
		return s.state
	}
	if s.queue.Len() == 0 {
		s.state = Unreachable
		s.path = nil
		return s.state
	}

	s.steps++
	current := heap.Pop(&s.queue).(entry)

	if current.node == s.goal {
		s.state = Found
		s.path = s.reconstruct()
		s.cost = s.dist[s.goal]
		return s.state
	}

	// Stale: a cheaper entry for this node was pushed after this one.
	if current.cost > s.dist[current.node] {
		return s.state
	}

	s.visited = append(s.visited, current.node)

	base := s.dist[current.node]
	for _, e := range s.graph.Neighbors(current.node) {
		if s.mask.Blocked(e.To) {
			continue
		}
		next := base + e.Cost
		if next < s.dist[e.To] {
			s.dist[e.To] = next
			s.prev[e.To] = current.node
			heap.Push(&s.queue, entry{node: e.To, cost: next})
		}
	}

	return s.state
}

// RunToCompletion steps until the search is Found or Unreachable.
func (s *Stepper) RunToCompletion() State {
	for s.state == Running {
		s.Step()
	}
	return s.state
}

func (s *Stepper) reconstruct() []int {
	if s.goal != s.source && s.prev[s.goal] == NoNode {
		return nil
	}
	var path []int
	for cur := s.goal; cur != NoNode; cur = s.prev[cur] {
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// State returns the current lifecycle state.
func (s *Stepper) State() State { return s.state }

// Path returns the materialised path once Found, nil otherwise.
func (s *Stepper) Path() []int { return s.path }

// Cost returns the path cost once Found.
func (s *Stepper) Cost() float64 { return s.cost }

// Visited returns the finalised nodes in order. The slice is owned by the
// stepper until the next Init.
func (s *Stepper) Visited() []int { return s.visited }

// Steps returns the number of queue pops since Init.
func (s *Stepper) Steps() int { return s.steps }

// Frontier returns the number of queued entries, stale ones included.
func (s *Stepper) Frontier() int { return s.queue.Len() }

// Source and Goal return the endpoints of the current search, or NoNode.
func (s *Stepper) Source() int { return s.source }
func (s *Stepper) Goal() int   { return s.goal }

// Distance returns the best known cost to idx, +Inf if not reached.
func (s *Stepper) Distance(idx int) float64 {
	if s.state == Idle {
		return math.Inf(1)
	}
	return s.dist[idx]
}

// Result packages the outcome of a finished search.
func (s *Stepper) Result() Result {
	return Result{
		Path:    s.path,
		Cost:    s.cost,
		Visited: s.visited,
		Found:   s.state == Found,
	}
}
