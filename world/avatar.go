package world

// ID identifies an avatar. Values are issued by the server and are stable for
// the avatar's lifetime.
type ID int64

// Cell is an integer grid coordinate.
type Cell struct {
	X, Y int
}

// Add returns c offset by d.
func (c Cell) Add(d Cell) Cell {
	return Cell{X: c.X + d.X, Y: c.Y + d.Y}
}

// Grid describes the playing field in cells.
type Grid struct {
	W, H int
}

// Contains reports whether c lies on the grid.
func (g Grid) Contains(c Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < g.W && c.Y < g.H
}

// DefaultStep is the progress added to a moving avatar per render tick.
const DefaultStep = 0.1

// progressEpsilon absorbs float error so ten 0.1 steps finish a move.
const progressEpsilon = 1e-9

// Sprite is the handle of an avatar's sprite sheet. Loading happens in the
// background; Ready reports whether it finished.
type Sprite interface {
	Ready() bool
}

// Avatar is the local view of one server-tracked entity.
type Avatar struct {
	ID ID

	// Last is the cell the avatar occupied when its current move began.
	Last Cell
	// Target is the destination of the current move; equal to Last when idle.
	Target Cell
	// Progress is the completed fraction of the current move, in [0, 1).
	Progress float64

	Text   string
	Active bool

	Image  string
	Sprite Sprite
}

// Idle reports whether the avatar has no move in flight. This is the only
// place idleness is decided; Progress is always zero while idle.
func (a *Avatar) Idle() bool {
	return a.Last == a.Target
}

// Advance moves the avatar step further towards Target. When the move
// completes, Last collapses onto Target, Progress resets to zero and Advance
// returns true. Idle avatars and non-positive steps are left untouched.
func (a *Avatar) Advance(step float64) bool {
	if a.Idle() || step <= 0 {
		return false
	}
	p := a.Progress + step
	if p >= 1-progressEpsilon {
		a.Last = a.Target
		a.Progress = 0
		return true
	}
	a.Progress = p
	return false
}

// Position returns the avatar's continuous pixel position for the given cell
// size.
func (a *Avatar) Position(cellSize float64) (x, y float64) {
	x = cellSize * (float64(a.Last.X) + a.Progress*float64(a.Target.X-a.Last.X))
	y = cellSize * (float64(a.Last.Y) + a.Progress*float64(a.Target.Y-a.Last.Y))
	return x, y
}
