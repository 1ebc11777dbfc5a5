package grid

// Mask holds the per-cell obstacle flags. It is owned by the simulation tick
// and carries no locking of its own.
type Mask struct {
	blocked []bool
	count   int
}

// NewMask creates an all-clear mask for n cells.
func NewMask(n int) *Mask {
	return &Mask{blocked: make([]bool, n)}
}

// Blocked reports whether idx is an obstacle.
func (m *Mask) Blocked(idx int) bool {
	return m.blocked[idx]
}

// Set marks idx as blocked or clear.
func (m *Mask) Set(idx int, blocked bool) {
	if m.blocked[idx] == blocked {
		return
	}
	m.blocked[idx] = blocked
	if blocked {
		m.count++
	} else {
		m.count--
	}
}

// Toggle flips idx and returns the new state.
func (m *Mask) Toggle(idx int) bool {
	m.Set(idx, !m.blocked[idx])
	return m.blocked[idx]
}

// Clear removes every obstacle.
func (m *Mask) Clear() {
	for i := range m.blocked {
		m.blocked[i] = false
	}
	m.count = 0
}

// Len returns the number of cells covered.
func (m *Mask) Len() int {
	return len(m.blocked)
}

// Count returns the number of blocked cells.
func (m *Mask) Count() int {
	return m.count
}

// Snapshot returns a copy of the flags.
func (m *Mask) Snapshot() []bool {
	out := make([]bool, len(m.blocked))
	copy(out, m.blocked)
	return out
}

// Cells returns the blocked indices in ascending order.
func (m *Mask) Cells() []int {
	out := make([]int, 0, m.count)
	for i, b := range m.blocked {
		if b {
			out = append(out, i)
		}
	}
	return out
}
