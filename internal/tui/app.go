// Package tui is a terminal front end for the simulation. Each grid cell is
// one terminal cell; the grid is cropped to the screen and the bottom row
// holds a status line.
package tui

import (
	"context"
	"time"
	"unicode"

	"gridpath/internal/render"
	"gridpath/internal/sim"

	"github.com/gdamore/tcell/v2"
)

// Engine is the part of the simulation the terminal view drives.
type Engine interface {
	Snapshot() *sim.Snapshot
	Enqueue(sim.Command) error
	Tick() sim.TickStats
	Mode() sim.Mode
}

// Options configures an App.
type Options struct {
	TickRate int   // ticks per second, default 60
	Tone     *Tone // optional arrival sound
	Notice   string
}

// Glyphs used for each cell kind.
const (
	GlyphFree     = '·'
	GlyphObstacle = '█'
	GlyphVisited  = '░'
	GlyphPath     = '•'
	GlyphAgent    = '@'
)

var (
	styleFree     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleObstacle = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleVisited  = tcell.StyleDefault.Foreground(tcell.ColorOrange)
	stylePath     = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
	styleAgent    = tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleNotice   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
)

// App owns the screen and turns input into engine commands.
type App struct {
	screen tcell.Screen
	engine Engine
	opts   Options

	cursorX, cursorY int
	lastButtons      tcell.ButtonMask
	moving           bool
	arrivals         int
	message          string
}

// New creates an App. The caller owns the screen lifecycle (Init/Fini).
func New(screen tcell.Screen, engine Engine, opts Options) *App {
	if opts.TickRate <= 0 {
		opts.TickRate = 60
	}
	return &App{
		screen:  screen,
		engine:  engine,
		opts:    opts,
		message: opts.Notice,
	}
}

// Run ticks the engine and redraws at the configured rate until the user
// quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Second / time.Duration(a.opts.TickRate))
	defer ticker.Stop()

	events := make(chan tcell.Event, 64)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			ev := a.screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case events <- ev:
			case <-done:
				return
			}
		}
	}()

	a.Draw(a.engine.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if !a.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			a.Step()
		}
	}
}

// Step advances the engine one tick and redraws.
func (a *App) Step() sim.TickStats {
	stats := a.engine.Tick()
	snap := a.engine.Snapshot()

	moving := !snap.Agent.Idle
	if a.moving && !moving && len(snap.Path) > 0 {
		a.arrivals++
		a.opts.Tone.Play()
	}
	a.moving = moving

	a.Draw(snap)
	return stats
}

// HandleEvent applies one input event. It returns false when the user quits.
func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return a.handleKey(ev)
	case *tcell.EventMouse:
		a.handleMouse(ev)
	case *tcell.EventResize:
		a.screen.Sync()
		a.clampCursor()
	}
	return true
}

func (a *App) handleKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return false
	case tcell.KeyUp:
		a.moveCursor(0, -1)
	case tcell.KeyDown:
		a.moveCursor(0, 1)
	case tcell.KeyLeft:
		a.moveCursor(-1, 0)
	case tcell.KeyRight:
		a.moveCursor(1, 0)
	case tcell.KeyEnter:
		a.enqueue(sim.RequestPath(a.cursorX, a.cursorY))
	case tcell.KeyRune:
		switch unicode.ToLower(ev.Rune()) {
		case 'q':
			return false
		case 'p':
			a.enqueue(sim.RequestPath(a.cursorX, a.cursorY))
		case ' ':
			a.enqueue(sim.ToggleObstacle(a.cursorX, a.cursorY))
		case 'c':
			a.enqueue(sim.ClearObstacles())
		case 'm':
			next := sim.ModeStepped
			if a.engine.Mode() == sim.ModeStepped {
				next = sim.ModeOneShot
			}
			a.enqueue(sim.SetMode(next))
		}
	}
	return true
}

// handleMouse acts on button presses only; held buttons repeat events.
func (a *App) handleMouse(ev *tcell.EventMouse) {
	buttons := ev.Buttons()
	pressed := buttons &^ a.lastButtons
	a.lastButtons = buttons

	x, y := ev.Position()
	if pressed == 0 || !a.inGrid(x, y) {
		return
	}
	a.cursorX, a.cursorY = x, y

	switch {
	case pressed&tcell.Button1 != 0:
		a.enqueue(sim.ToggleObstacle(x, y))
	case pressed&tcell.Button2 != 0:
		a.enqueue(sim.RequestPath(x, y))
	}
}

func (a *App) enqueue(cmd sim.Command) {
	if err := a.engine.Enqueue(cmd); err != nil {
		a.message = err.Error()
		return
	}
	a.message = ""
}

// visible returns how many columns and rows of the grid fit on screen.
func (a *App) visible(snap *sim.Snapshot) (cols, rows int) {
	w, h := a.screen.Size()
	return min(snap.Cols, w), max(0, min(snap.Rows, h-1))
}

func (a *App) inGrid(x, y int) bool {
	cols, rows := a.visible(a.engine.Snapshot())
	return x >= 0 && y >= 0 && x < cols && y < rows
}

func (a *App) moveCursor(dx, dy int) {
	a.cursorX += dx
	a.cursorY += dy
	a.clampCursor()
}

func (a *App) clampCursor() {
	cols, rows := a.visible(a.engine.Snapshot())
	a.cursorX = max(0, min(a.cursorX, cols-1))
	a.cursorY = max(0, min(a.cursorY, rows-1))
}

// Draw paints snap onto the screen.
func (a *App) Draw(snap *sim.Snapshot) {
	a.screen.Clear()
	cols, rows := a.visible(snap)

	n := snap.Cols * snap.Rows
	onPath := make([]bool, n)
	for _, idx := range snap.Path {
		onPath[idx] = true
	}
	visited := make([]bool, n)
	for _, idx := range snap.Visited {
		visited[idx] = true
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			idx := y*snap.Cols + x
			glyph, style := rune(GlyphFree), styleFree
			switch {
			case idx == snap.Agent.Cell:
				glyph, style = GlyphAgent, styleAgent
			case snap.Blocked(idx):
				glyph, style = GlyphObstacle, styleObstacle
			case onPath[idx]:
				glyph, style = GlyphPath, stylePath
			case visited[idx]:
				glyph, style = GlyphVisited, styleVisited
			}
			if x == a.cursorX && y == a.cursorY {
				style = style.Reverse(true)
			}
			a.screen.SetContent(x, y, glyph, nil, style)
		}
	}

	status := render.StatusLine(snap)
	a.drawText(0, rows, status, styleStatus)
	if a.message != "" {
		a.drawText(len([]rune(status))+3, rows, a.message, styleNotice)
	}
	a.screen.Show()
}

func (a *App) drawText(x, y int, s string, style tcell.Style) {
	w, _ := a.screen.Size()
	for _, r := range s {
		if x >= w {
			return
		}
		a.screen.SetContent(x, y, r, nil, style)
		x++
	}
}

// Cursor returns the keyboard cursor in grid coordinates.
func (a *App) Cursor() (x, y int) { return a.cursorX, a.cursorY }

// Arrivals counts completed paths seen by Step.
func (a *App) Arrivals() int { return a.arrivals }

// Message returns the last command error or notice shown in the status line.
func (a *App) Message() string { return a.message }
