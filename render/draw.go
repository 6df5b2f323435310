package render

import (
	"image"
	"image/color"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	text "github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// sheetImager is implemented by sprite handles that can hand out a GPU image.
type sheetImager interface {
	Image() *ebiten.Image
}

// frameRect is the sheet region holding the standing frame.
var frameRect = image.Rect(0, 0, 64, 128)

var (
	drawOptsPool     = sync.Pool{New: func() any { return &ebiten.DrawImageOptions{} }}
	textDrawOptsPool = sync.Pool{New: func() any { return &text.DrawOptions{} }}
)

func acquireDrawOpts() *ebiten.DrawImageOptions {
	op := drawOptsPool.Get().(*ebiten.DrawImageOptions)
	*op = ebiten.DrawImageOptions{Filter: ebiten.FilterNearest, DisableMipmaps: true}
	return op
}

func releaseDrawOpts(op *ebiten.DrawImageOptions) {
	drawOptsPool.Put(op)
}

func acquireTextDrawOpts() *text.DrawOptions {
	op := textDrawOptsPool.Get().(*text.DrawOptions)
	*op = text.DrawOptions{}
	return op
}

func releaseTextDrawOpts(op *text.DrawOptions) {
	textDrawOptsPool.Put(op)
}

// Renderer draws planned frames.
type Renderer struct {
	CellSize   float64
	Face       text.Face
	Background color.Color
	LabelColor color.Color
	// LabelPlate is drawn behind labels when its alpha is non-zero.
	LabelPlate color.Color
}

// Draw clears dst and draws items in order.
func (r *Renderer) Draw(dst *ebiten.Image, items []Item) {
	bg := r.Background
	if bg == nil {
		bg = color.Black
	}
	dst.Fill(bg)
	s := r.CellSize / BaseCell
	for i := range items {
		r.drawSprite(dst, &items[i], s)
	}
	// Labels go on top so a neighbour's sprite never hides speech.
	for i := range items {
		if items[i].Label != "" {
			r.drawLabel(dst, &items[i])
		}
	}
}

func (r *Renderer) drawSprite(dst *ebiten.Image, it *Item, s float64) {
	si, ok := it.Sprite.(sheetImager)
	if !ok || !it.Sprite.Ready() {
		return
	}
	sheet := si.Image()
	if sheet == nil {
		return
	}
	src := frameRect.Intersect(sheet.Bounds())
	if src.Empty() {
		return
	}
	op := acquireDrawOpts()
	op.GeoM.Scale(spriteScale*s, spriteScale*s)
	op.GeoM.Translate(it.X+spriteOffsetX*s, it.Y)
	dst.DrawImage(sheet.SubImage(src).(*ebiten.Image), op)
	releaseDrawOpts(op)
}

func (r *Renderer) drawLabel(dst *ebiten.Image, it *Item) {
	if r.Face == nil {
		return
	}
	ascent := r.Face.Metrics().HAscent
	top := it.LabelY - ascent
	if r.LabelPlate != nil && alpha(r.LabelPlate) > 0 {
		w, h := text.Measure(it.Label, r.Face, 0)
		vector.DrawFilledRect(dst, float32(it.LabelX-2), float32(top-1), float32(w+4), float32(h+2), r.LabelPlate, false)
	}
	op := acquireTextDrawOpts()
	op.GeoM.Translate(it.LabelX, top)
	if r.LabelColor != nil {
		op.ColorScale.ScaleWithColor(r.LabelColor)
	}
	text.Draw(dst, it.Label, r.Face, op)
	releaseTextDrawOpts(op)
}

func alpha(c color.Color) uint32 {
	_, _, _, a := c.RGBA()
	return a
}
