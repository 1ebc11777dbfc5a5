package sim

import (
	"errors"
	"fmt"
	"strings"

	"gridpath/internal/config"
)

var (
	// ErrOutOfBounds is returned for coordinates outside the grid.
	ErrOutOfBounds = errors.New("sim: cell out of bounds")
	// ErrQueueFull is returned when the pending command cap is reached.
	ErrQueueFull = errors.New("sim: command queue full")
	// ErrUnknownMode is returned by ParseMode.
	ErrUnknownMode = errors.New("sim: unknown mode")
)

// Mode selects how a path request is searched.
type Mode uint8

const (
	// ModeStepped advances the search a fixed number of pops per tick.
	ModeStepped Mode = iota
	// ModeOneShot completes the search within the tick that requested it.
	ModeOneShot
)

func (m Mode) String() string {
	if m == ModeOneShot {
		return config.ModeOneShot
	}
	return config.ModeStepped
}

// ParseMode accepts "oneshot" or "stepped".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case config.ModeOneShot:
		return ModeOneShot, nil
	case config.ModeStepped:
		return ModeStepped, nil
	default:
		return ModeStepped, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// CommandKind enumerates external input events.
type CommandKind uint8

const (
	CmdToggleObstacle CommandKind = iota + 1
	CmdRequestPath
	CmdClearObstacles
	CmdSetMode
)

func (k CommandKind) String() string {
	switch k {
	case CmdToggleObstacle:
		return "toggle"
	case CmdRequestPath:
		return "path"
	case CmdClearObstacles:
		return "clear"
	case CmdSetMode:
		return "mode"
	default:
		return "unknown"
	}
}

// hasCell reports whether the command carries a grid coordinate.
func (k CommandKind) hasCell() bool {
	return k == CmdToggleObstacle || k == CmdRequestPath
}

// Command is one queued input event. X and Y are grid coordinates.
type Command struct {
	Kind CommandKind
	X, Y int
	Mode Mode
}

// ToggleObstacle builds a toggle command.
func ToggleObstacle(x, y int) Command {
	return Command{Kind: CmdToggleObstacle, X: x, Y: y}
}

// RequestPath builds a destination request.
func RequestPath(x, y int) Command {
	return Command{Kind: CmdRequestPath, X: x, Y: y}
}

// ClearObstacles builds a command that removes every obstacle.
func ClearObstacles() Command {
	return Command{Kind: CmdClearObstacles}
}

// SetMode builds a mode switch. It applies to the next path request.
func SetMode(m Mode) Command {
	return Command{Kind: CmdSetMode, Mode: m}
}
