// Package render turns the avatar store into frames.
package render

import "gridchat/world"

// BaseCell is the cell size the sprite and label offsets are laid out for.
const BaseCell = 64

// Offsets at BaseCell. The sprite's first frame is drawn at half size,
// centred horizontally in the cell.
const (
	spriteOffsetX = 16
	spriteScale   = 0.5
	labelOffsetX  = 24
	labelOffsetY  = -8
)

// Item is one avatar's contribution to a frame.
type Item struct {
	ID     world.ID
	X, Y   float64 // top-left of the avatar's cell, in pixels
	Sprite world.Sprite

	Label          string
	LabelX, LabelY float64 // label baseline origin
}

// Plan lays out the active avatars for one frame in store order. Inactive
// avatars are skipped.
func Plan(avatars []world.Avatar, cellSize float64) []Item {
	s := cellSize / BaseCell
	items := make([]Item, 0, len(avatars))
	for i := range avatars {
		a := &avatars[i]
		if !a.Active {
			continue
		}
		x, y := a.Position(cellSize)
		it := Item{ID: a.ID, X: x, Y: y, Sprite: a.Sprite}
		if a.Text != "" {
			it.Label = a.Text
			it.LabelX = x + labelOffsetX*s
			it.LabelY = y + labelOffsetY*s
		}
		items = append(items, it)
	}
	return items
}
