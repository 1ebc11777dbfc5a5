// Package sim owns the simulation state: the grid, the obstacle mask, the
// search and the agent. Input arrives as queued commands and is applied once
// per tick; readers only ever see immutable snapshots.
package sim

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"gridpath/internal/agent"
	"gridpath/internal/config"
	"gridpath/internal/grid"
	"gridpath/internal/pathfind"
)

// ErrUnknownCommand is returned by Enqueue for a zero or unknown kind.
var ErrUnknownCommand = errors.New("sim: unknown command")

// Config is everything the engine needs to build its state.
type Config struct {
	Cols, Rows int
	Spacing    float64

	StartX, StartY int
	Speed, Epsilon float64

	TickRate     int
	StepsPerTick int
	Mode         Mode
	QueueSize    int

	Obstacles [][2]int // initial obstacle cells as [x, y]
}

// DefaultConfig mirrors config.Default.
func DefaultConfig() Config {
	cfg, _ := ConfigFromApp(config.Default())
	return cfg
}

// ConfigFromApp converts the application configuration.
func ConfigFromApp(app config.AppConfig) (Config, error) {
	mode, err := ParseMode(app.Sim.Mode)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Cols:         app.Grid.Cols(),
		Rows:         app.Grid.Rows(),
		Spacing:      float64(app.Grid.Spacing),
		StartX:       app.Agent.StartX,
		StartY:       app.Agent.StartY,
		Speed:        app.Agent.Speed,
		Epsilon:      app.Agent.Epsilon,
		TickRate:     app.Sim.TickRate,
		StepsPerTick: app.Sim.StepsPerTick(),
		Mode:         mode,
		QueueSize:    app.Sim.QueueSize,
		Obstacles:    slices.Clone(app.Grid.Obstacles),
	}, nil
}

// Engine is the simulation context. Tick is the only method that mutates
// simulation state; it is serialised by mu.
type Engine struct {
	mu       sync.Mutex
	graph    *grid.Graph
	mask     *grid.Mask
	stepper  *pathfind.Stepper
	follower *agent.Follower
	path     []int // node indices handed to the follower
	mode     Mode

	stepsPerTick int
	tickRate     int
	tickCount    atomic.Uint64
	sequence     uint64

	// Pending input, filled from any goroutine.
	cmdMu     sync.Mutex
	pending   []Command
	queueSize int
	rejected  atomic.Int64

	snapshot atomic.Pointer[Snapshot]
	eventLog *EventLog

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	done     chan struct{}

	onTick   func(TickStats)
	onSearch func(SearchOutcome)
}

// NewEngine builds the graph, applies initial obstacles and places the agent
// at the centre of its start cell.
func NewEngine(cfg Config) (*Engine, error) {
	g, err := grid.NewGraph(cfg.Cols, cfg.Rows, cfg.Spacing)
	if err != nil {
		return nil, fmt.Errorf("sim: build grid: %w", err)
	}
	if !g.InBounds(cfg.StartX, cfg.StartY) {
		return nil, fmt.Errorf("%w: agent start (%d,%d)", ErrOutOfBounds, cfg.StartX, cfg.StartY)
	}

	mask := grid.NewMask(g.Len())
	for _, o := range cfg.Obstacles {
		if !g.InBounds(o[0], o[1]) {
			return nil, fmt.Errorf("%w: obstacle (%d,%d)", ErrOutOfBounds, o[0], o[1])
		}
		mask.Set(g.Index(o[0], o[1]), true)
	}

	tickRate := cfg.TickRate
	if tickRate <= 0 {
		tickRate = 60
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	e := &Engine{
		graph:        g,
		mask:         mask,
		stepper:      pathfind.NewStepper(g, mask),
		follower:     agent.NewFollower(g.Center(g.Index(cfg.StartX, cfg.StartY)), cfg.Speed, cfg.Epsilon),
		mode:         cfg.Mode,
		stepsPerTick: max(1, cfg.StepsPerTick),
		tickRate:     tickRate,
		pending:      make([]Command, 0, queueSize),
		queueSize:    queueSize,
		eventLog:     NewEventLog(),
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
	}

	e.mu.Lock()
	e.publish()
	e.mu.Unlock()
	return e, nil
}

// Start runs Tick at the configured rate until Stop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running || e.ticker != nil {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	e.mu.Unlock()

	go func() {
		defer close(e.done)
		for {
			select {
			case <-e.ticker.C:
				e.Tick()
			case <-e.stopChan:
				return
			}
		}
	}()

	log.Printf("🧭 Simulation started at %d TPS (%s, %d steps/tick)", e.tickRate, e.Mode(), e.stepsPerTick)
}

// Stop halts the tick loop and waits for the current tick to finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	e.mu.Unlock()

	<-e.done
	log.Println("🛑 Simulation stopped")
}

// Enqueue queues a command for the next tick. Out-of-range cells are
// rejected here and never reach the core.
func (e *Engine) Enqueue(cmd Command) error {
	switch {
	case cmd.Kind < CmdToggleObstacle || cmd.Kind > CmdSetMode:
		e.reject(cmd, "unknown command")
		return fmt.Errorf("%w: %d", ErrUnknownCommand, cmd.Kind)
	case cmd.Kind.hasCell() && !e.graph.InBounds(cmd.X, cmd.Y):
		e.reject(cmd, "out of bounds")
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, cmd.X, cmd.Y)
	}

	e.cmdMu.Lock()
	if len(e.pending) >= e.queueSize {
		e.cmdMu.Unlock()
		e.reject(cmd, "queue full")
		return ErrQueueFull
	}
	e.pending = append(e.pending, cmd)
	e.cmdMu.Unlock()
	return nil
}

func (e *Engine) reject(cmd Command, reason string) {
	e.rejected.Add(1)
	e.eventLog.EmitSimple(EventTypeCommandRejected, e.tickCount.Load(), RejectPayload{
		Command: cmd.Kind.String(),
		X:       cmd.X,
		Y:       cmd.Y,
		Reason:  reason,
	})
}

func (e *Engine) drain() []Command {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	if len(e.pending) == 0 {
		return nil
	}
	cmds := e.pending
	e.pending = make([]Command, 0, e.queueSize)
	return cmds
}

// Tick advances the simulation by one frame: apply queued commands, advance
// the search, move the agent and publish a snapshot.
func (e *Engine) Tick() TickStats {
	start := time.Now()
	cmds := e.drain()

	e.mu.Lock()
	tick := e.tickCount.Add(1)

	for _, cmd := range cmds {
		e.apply(cmd, tick)
	}
	steps, outcome := e.advanceSearch(tick)
	e.moveAgent(tick)
	snap := e.publish()

	stats := TickStats{
		Tick:       tick,
		Commands:   len(cmds),
		Rejected:   int(e.rejected.Swap(0)),
		Steps:      steps,
		Obstacles:  len(snap.Obstacles),
		Visited:    len(snap.Visited),
		PathLength: len(snap.Path),
	}
	onTick, onSearch := e.onTick, e.onSearch
	e.mu.Unlock()

	stats.Duration = time.Since(start)
	if outcome != nil && onSearch != nil {
		onSearch(*outcome)
	}
	if onTick != nil {
		onTick(stats)
	}
	return stats
}

func (e *Engine) apply(cmd Command, tick uint64) {
	switch cmd.Kind {
	case CmdToggleObstacle:
		idx := e.graph.Index(cmd.X, cmd.Y)
		blocked := e.mask.Toggle(idx)
		e.eventLog.EmitSimple(EventTypeObstacleToggled, tick, CellPayload{X: cmd.X, Y: cmd.Y, Blocked: blocked})

	case CmdRequestPath:
		// Stop first so the old path and the new search never coexist.
		e.follower.Assign(nil)
		e.path = nil

		source := e.graph.CellAt(e.follower.Position())
		goal := e.graph.Index(cmd.X, cmd.Y)
		if err := e.stepper.Init(source, goal); err != nil {
			log.Printf("⚠️ Path request (%d,%d) dropped: %v", cmd.X, cmd.Y, err)
			return
		}
		e.eventLog.EmitSimple(EventTypePathRequested, tick, PathRequestPayload{
			Source: source,
			Goal:   goal,
			Mode:   e.mode.String(),
		})

	case CmdClearObstacles:
		e.mask.Clear()
		e.eventLog.EmitSimple(EventTypeObstaclesCleared, tick, nil)

	case CmdSetMode:
		if e.mode == cmd.Mode {
			return
		}
		e.mode = cmd.Mode
		e.eventLog.EmitSimple(EventTypeModeChanged, tick, map[string]string{"mode": e.mode.String()})
	}
}

// advanceSearch runs the running search for this tick's budget. When the
// search terminates its path is handed to the follower in the same call.
func (e *Engine) advanceSearch(tick uint64) (int, *SearchOutcome) {
	if e.stepper.State() != pathfind.Running {
		return 0, nil
	}

	before := e.stepper.Steps()
	if e.mode == ModeOneShot {
		e.stepper.RunToCompletion()
	} else {
		for i := 0; i < e.stepsPerTick && e.stepper.State() == pathfind.Running; i++ {
			e.stepper.Step()
		}
		// An empty queue is only noticed on the next step; finish within
		// this tick when the budget ran out exactly at that point.
		if e.stepper.Frontier() == 0 {
			e.stepper.Step()
		}
	}
	steps := e.stepper.Steps() - before

	if !e.stepper.State().Terminal() {
		return steps, nil
	}

	res := e.stepper.Result()
	e.path = slices.Clone(res.Path)
	waypoints := make([]grid.Point, len(e.path))
	for i, idx := range e.path {
		waypoints[i] = e.graph.Center(idx)
	}
	e.follower.Assign(waypoints)

	outcome := &SearchOutcome{
		Source:     e.stepper.Source(),
		Goal:       e.stepper.Goal(),
		Found:      res.Found,
		Steps:      e.stepper.Steps(),
		Visited:    len(res.Visited),
		PathLength: len(res.Path),
		Cost:       res.Cost,
	}
	payload := SearchPayload{
		Source:     outcome.Source,
		Goal:       outcome.Goal,
		Steps:      outcome.Steps,
		Visited:    outcome.Visited,
		PathLength: outcome.PathLength,
		Cost:       outcome.Cost,
	}
	if res.Found {
		e.eventLog.EmitSimple(EventTypeSearchFound, tick, payload)
	} else {
		e.eventLog.EmitSimple(EventTypeSearchUnreachable, tick, payload)
	}
	return steps, outcome
}

func (e *Engine) moveAgent(tick uint64) {
	arrival := e.follower.Update()
	if !arrival.Reached {
		return
	}
	e.eventLog.EmitSimple(EventTypeWaypointReached, tick, WaypointPayload{
		Index: arrival.Index,
		Node:  e.path[arrival.Index],
	})
	if arrival.Done {
		e.eventLog.EmitSimple(EventTypePathCompleted, tick, WaypointPayload{
			Index: arrival.Index,
			Node:  e.path[arrival.Index],
		})
	}
}

// publish copies the current state into a new snapshot. Caller holds mu.
func (e *Engine) publish() *Snapshot {
	pos := e.follower.Position()
	snap := &Snapshot{
		Sequence:  e.sequence,
		Tick:      e.tickCount.Load(),
		Timestamp: time.Now(),
		Cols:      e.graph.Cols,
		Rows:      e.graph.Rows,
		Spacing:   e.graph.Spacing,
		Mode:      e.mode.String(),
		Mask:      e.mask.Snapshot(),
		Obstacles: e.mask.Cells(),
		Visited:   slices.Clone(e.stepper.Visited()),
		Path:      slices.Clone(e.path),
		Agent: AgentSnapshot{
			X:         pos.X,
			Y:         pos.Y,
			Cell:      e.graph.CellAt(pos),
			Cursor:    e.follower.Cursor(),
			Remaining: e.follower.Remaining(),
			Idle:      e.follower.Idle(),
		},
		Search: SearchSnapshot{
			State:    e.stepper.State().String(),
			Source:   e.stepper.Source(),
			Goal:     e.stepper.Goal(),
			Steps:    e.stepper.Steps(),
			Frontier: e.stepper.Frontier(),
			Cost:     e.stepper.Cost(),
		},
	}
	if snap.Visited == nil {
		snap.Visited = []int{}
	}
	if snap.Path == nil {
		snap.Path = []int{}
	}
	e.sequence++
	e.snapshot.Store(snap)
	return snap
}

// Snapshot returns the latest published state. It never returns nil.
func (e *Engine) Snapshot() *Snapshot {
	return e.snapshot.Load()
}

// Graph returns the immutable grid graph.
func (e *Engine) Graph() *grid.Graph {
	return e.graph
}

// Mode returns the current search mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// TickRate returns the configured ticks per second.
func (e *Engine) TickRate() int {
	return e.tickRate
}

// Pending returns the number of queued commands.
func (e *Engine) Pending() int {
	e.cmdMu.Lock()
	defer e.cmdMu.Unlock()
	return len(e.pending)
}

// EventLog returns the engine's event log.
func (e *Engine) EventLog() *EventLog {
	return e.eventLog
}

// RecentEvents returns up to n of the newest events, oldest first.
func (e *Engine) RecentEvents(n int) []Event {
	return e.eventLog.Recent(n)
}

// StartEventLog begins persisting events to filePath.
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog flushes and closes the event log.
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// SetCallbacks registers observers called after each tick and after each
// finished search. They run on the ticking goroutine, outside the lock.
func (e *Engine) SetCallbacks(onTick func(TickStats), onSearch func(SearchOutcome)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = onTick
	e.onSearch = onSearch
}
