package sim

import (
	"errors"
	"slices"
	"testing"
	"time"

	"gridpath/internal/config"
	"gridpath/internal/grid"
	"gridpath/internal/pathfind"
)

func smallConfig(mode Mode) Config {
	return Config{
		Cols:         5,
		Rows:         5,
		Spacing:      20,
		Speed:        2.5,
		Epsilon:      1.0,
		TickRate:     60,
		StepsPerTick: 1,
		Mode:         mode,
		QueueSize:    16,
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

// tickUntil ticks until cond holds or the limit is hit.
func tickUntil(t *testing.T, e *Engine, limit int, cond func(*Snapshot) bool) *Snapshot {
	t.Helper()
	for i := 0; i < limit; i++ {
		e.Tick()
		if snap := e.Snapshot(); cond(snap) {
			return snap
		}
	}
	t.Fatalf("condition not reached after %d ticks", limit)
	return nil
}

func TestNewEngineDefaults(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	snap := e.Snapshot()
	if snap == nil {
		t.Fatal("initial snapshot should be published")
	}
	if snap.Cols != 40 || snap.Rows != 30 {
		t.Errorf("expected 40x30, got %dx%d", snap.Cols, snap.Rows)
	}
	if snap.Agent.X != 110 || snap.Agent.Y != 110 || snap.Agent.Cell != 205 {
		t.Errorf("agent should start at centre of (5,5), got %+v", snap.Agent)
	}
	if !snap.Agent.Idle || snap.Search.State != "idle" {
		t.Errorf("expected idle agent and search, got %+v / %+v", snap.Agent, snap.Search)
	}
	if e.Mode() != ModeStepped {
		t.Errorf("expected stepped mode, got %v", e.Mode())
	}
	if len(snap.Path) != 0 || len(snap.Visited) != 0 || snap.Path == nil {
		t.Error("expected empty, non-nil path and visited")
	}
}

func TestNewEngineErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"zero spacing", func(c *Config) { c.Spacing = 0 }, grid.ErrInvalidSpacing},
		{"empty grid", func(c *Config) { c.Cols = 0 }, grid.ErrEmptyGrid},
		{"start outside", func(c *Config) { c.StartX = 5 }, ErrOutOfBounds},
		{"obstacle outside", func(c *Config) { c.Obstacles = [][2]int{{0, -1}} }, ErrOutOfBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig(ModeOneShot)
			tt.mutate(&cfg)
			if _, err := NewEngine(cfg); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigFromApp(t *testing.T) {
	app := config.Default()
	app.Sim.Mode = config.ModeOneShot
	app.Grid.Obstacles = [][2]int{{1, 2}}

	cfg, err := ConfigFromApp(app)
	if err != nil {
		t.Fatalf("ConfigFromApp: %v", err)
	}
	if cfg.Mode != ModeOneShot || cfg.StepsPerTick != 16 || cfg.Cols != 40 {
		t.Errorf("unexpected config %+v", cfg)
	}

	app.Sim.Mode = "bfs"
	if _, err := ConfigFromApp(app); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestEnqueueRejects(t *testing.T) {
	cfg := smallConfig(ModeOneShot)
	cfg.QueueSize = 2
	e := newTestEngine(t, cfg)

	if err := e.Enqueue(ToggleObstacle(5, 0)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if err := e.Enqueue(RequestPath(-1, 2)); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("expected ErrOutOfBounds, got %v", err)
	}
	if err := e.Enqueue(Command{}); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}

	if err := e.Enqueue(ToggleObstacle(1, 1)); err != nil {
		t.Fatal(err)
	}
	if err := e.Enqueue(ClearObstacles()); err != nil {
		t.Fatal(err)
	}
	if err := e.Enqueue(ToggleObstacle(2, 2)); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if e.Pending() != 2 {
		t.Errorf("expected 2 pending, got %d", e.Pending())
	}

	stats := e.Tick()
	if stats.Commands != 2 || stats.Rejected != 4 {
		t.Errorf("expected 2 applied and 4 rejected, got %+v", stats)
	}
	if e.Pending() != 0 {
		t.Error("queue should be drained")
	}
	if got := e.Tick().Rejected; got != 0 {
		t.Errorf("rejected count should reset each tick, got %d", got)
	}
}

func TestToggleObstacle(t *testing.T) {
	e := newTestEngine(t, smallConfig(ModeOneShot))
	idx := e.Graph().Index(3, 4)

	e.Enqueue(ToggleObstacle(3, 4))
	e.Tick()
	first := e.Snapshot()
	if !first.Blocked(idx) || !slices.Equal(first.Obstacles, []int{idx}) {
		t.Fatalf("expected cell %d blocked, got %v", idx, first.Obstacles)
	}

	e.Enqueue(ToggleObstacle(3, 4))
	e.Enqueue(ToggleObstacle(0, 1))
	e.Tick()
	second := e.Snapshot()
	if second.Blocked(idx) || !slices.Equal(second.Obstacles, []int{5}) {
		t.Errorf("expected only cell 5 blocked, got %v", second.Obstacles)
	}
	if !first.Blocked(idx) || len(first.Obstacles) != 1 {
		t.Error("published snapshots must not change")
	}

	e.Enqueue(ClearObstacles())
	e.Tick()
	if n := len(e.Snapshot().Obstacles); n != 0 {
		t.Errorf("expected no obstacles after clear, got %d", n)
	}
}

func TestOneShotCompletesInSameTick(t *testing.T) {
	e := newTestEngine(t, smallConfig(ModeOneShot))

	e.Enqueue(RequestPath(4, 4))
	stats := e.Tick()
	snap := e.Snapshot()

	if snap.Search.State != "found" {
		t.Fatalf("expected found, got %s", snap.Search.State)
	}
	if !slices.Equal(snap.Path, []int{0, 6, 12, 18, 24}) {
		t.Errorf("unexpected path %v", snap.Path)
	}
	if stats.PathLength != 5 || stats.Steps != snap.Search.Steps {
		t.Errorf("unexpected stats %+v", stats)
	}
	// The agent already stands on the first waypoint, so it snaps this tick.
	if snap.Agent.Cursor != 1 || snap.Agent.Remaining != 4 {
		t.Errorf("expected cursor 1 with 4 remaining, got %+v", snap.Agent)
	}
}

func TestSteppedMatchesOneShot(t *testing.T) {
	obstacles := [][2]int{{1, 0}, {1, 1}, {1, 2}, {3, 2}, {3, 3}, {3, 4}}

	cfg := smallConfig(ModeStepped)
	cfg.Obstacles = obstacles
	e := newTestEngine(t, cfg)

	e.Enqueue(RequestPath(4, 4))
	e.Tick()
	if got := e.Snapshot().Search.State; got != "running" {
		t.Fatalf("one step per tick should still be running, got %s", got)
	}
	snap := tickUntil(t, e, 200, func(s *Snapshot) bool { return s.Search.State != "running" })

	g, _ := grid.NewGraph(5, 5, 20)
	mask := grid.NewMask(g.Len())
	for _, o := range obstacles {
		mask.Set(g.Index(o[0], o[1]), true)
	}
	want, err := pathfind.ShortestPath(g, mask, 0, 24)
	if err != nil {
		t.Fatal(err)
	}

	if !slices.Equal(snap.Path, want.Path) {
		t.Errorf("path: stepped %v, one-shot %v", snap.Path, want.Path)
	}
	if !slices.Equal(snap.Visited, want.Visited) {
		t.Errorf("visited: stepped %v, one-shot %v", snap.Visited, want.Visited)
	}
	if snap.Search.Cost != want.Cost {
		t.Errorf("cost: stepped %v, one-shot %v", snap.Search.Cost, want.Cost)
	}
}

func TestAgentReachesGoal(t *testing.T) {
	e := newTestEngine(t, smallConfig(ModeOneShot))

	e.Enqueue(RequestPath(4, 4))
	snap := tickUntil(t, e, 500, func(s *Snapshot) bool {
		return s.Search.State == "found" && s.Agent.Idle
	})

	goal := e.Graph().Center(24)
	if snap.Agent.X != goal.X || snap.Agent.Y != goal.Y {
		t.Errorf("agent should rest on the goal centre, got (%v,%v)", snap.Agent.X, snap.Agent.Y)
	}
	if snap.Agent.Cell != 24 || snap.Agent.Cursor != 5 {
		t.Errorf("unexpected agent state %+v", snap.Agent)
	}

	var names []string
	for _, ev := range e.EventLog().Recent(0) {
		names = append(names, ev.Name)
	}
	for _, want := range []string{"path_requested", "search_found", "waypoint_reached", "path_completed"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing %s event in %v", want, names)
		}
	}
}

func TestUnreachableLeavesAgentIdle(t *testing.T) {
	cfg := smallConfig(ModeStepped)
	cfg.StepsPerTick = 4
	cfg.Obstacles = [][2]int{{2, 0}, {2, 1}, {2, 2}, {2, 3}, {2, 4}}
	e := newTestEngine(t, cfg)
	start := e.Snapshot().Agent

	e.Enqueue(RequestPath(4, 0))
	snap := tickUntil(t, e, 50, func(s *Snapshot) bool { return s.Search.State != "running" })

	if snap.Search.State != "unreachable" {
		t.Fatalf("expected unreachable, got %s", snap.Search.State)
	}
	if len(snap.Path) != 0 || !snap.Agent.Idle {
		t.Errorf("expected no path and idle agent, got %v %+v", snap.Path, snap.Agent)
	}
	if snap.Agent.X != start.X || snap.Agent.Y != start.Y {
		t.Error("agent should not move")
	}
	if len(snap.Visited) != 10 {
		t.Errorf("expected the 10 reachable cells visited, got %d", len(snap.Visited))
	}
}

func TestRequestPathRestartsFromAgentCell(t *testing.T) {
	e := newTestEngine(t, smallConfig(ModeOneShot))

	e.Enqueue(RequestPath(4, 4))
	for i := 0; i < 10; i++ {
		e.Tick()
	}
	before := e.Snapshot()
	if before.Agent.Idle {
		t.Fatal("agent should still be travelling")
	}

	e.Enqueue(RequestPath(0, 4))
	e.Tick()
	after := e.Snapshot()

	if after.Search.Source != before.Agent.Cell {
		t.Errorf("search should start at agent cell %d, got %d", before.Agent.Cell, after.Search.Source)
	}
	if len(after.Path) == 0 || after.Path[0] != before.Agent.Cell || after.Path[len(after.Path)-1] != 20 {
		t.Errorf("unexpected new path %v", after.Path)
	}
	if after.Agent.Cursor > 1 {
		t.Errorf("cursor should restart with the new path, got %d", after.Agent.Cursor)
	}
}

func TestSetModeCommand(t *testing.T) {
	e := newTestEngine(t, smallConfig(ModeStepped))

	e.Enqueue(RequestPath(4, 4))
	e.Tick()
	if e.Snapshot().Search.State != "running" {
		t.Fatal("expected a running search")
	}

	e.Enqueue(SetMode(ModeOneShot))
	e.Tick()
	snap := e.Snapshot()
	if snap.Mode != "oneshot" || e.Mode() != ModeOneShot {
		t.Errorf("mode not switched: %s", snap.Mode)
	}
	if snap.Search.State != "found" {
		t.Errorf("one-shot mode should finish the running search, got %s", snap.Search.State)
	}
}

func TestCallbacks(t *testing.T) {
	e := newTestEngine(t, smallConfig(ModeOneShot))

	var ticks []TickStats
	var outcomes []SearchOutcome
	e.SetCallbacks(
		func(s TickStats) { ticks = append(ticks, s) },
		func(o SearchOutcome) { outcomes = append(outcomes, o) },
	)

	e.Enqueue(RequestPath(4, 4))
	e.Tick()
	e.Tick()

	if len(ticks) != 2 || ticks[0].Tick != 1 || ticks[1].Tick != 2 {
		t.Errorf("unexpected tick stats %+v", ticks)
	}
	if len(outcomes) != 1 {
		t.Fatalf("expected one search outcome, got %d", len(outcomes))
	}
	if o := outcomes[0]; !o.Found || o.Source != 0 || o.Goal != 24 || o.PathLength != 5 {
		t.Errorf("unexpected outcome %+v", o)
	}
}

func TestEngineStartStop(t *testing.T) {
	e := newTestEngine(t, smallConfig(ModeOneShot))

	e.Start()
	e.Start()
	e.Enqueue(ToggleObstacle(2, 2))

	deadline := time.Now().Add(2 * time.Second)
	for e.Snapshot().Tick == 0 || len(e.Snapshot().Obstacles) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("tick loop did not apply the command")
		}
		time.Sleep(5 * time.Millisecond)
	}

	e.Stop()
	// Should not panic on double stop
	e.Stop()

	tick := e.Snapshot().Tick
	time.Sleep(50 * time.Millisecond)
	if e.Snapshot().Tick != tick {
		t.Error("no ticks expected after Stop")
	}
}

func BenchmarkEngineTickStepped(b *testing.B) {
	e, err := NewEngine(DefaultConfig())
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if e.Snapshot().Search.State != "running" {
			e.Enqueue(RequestPath(i%40, 29))
		}
		e.Tick()
	}
}
