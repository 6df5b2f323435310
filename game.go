package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	text "github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	clipboard "golang.design/x/clipboard"

	"gridchat/client"
	"gridchat/render"
)

const (
	screenW, gridH = 1024, 768
	cellSize       = 64
	inputBarH      = 32
	screenH        = gridH + inputBarH

	initialWindowW, initialWindowH = screenW, screenH

	windowTitle = "gridchat"
)

// Key repeat timing in ticks for held arrows and backspace.
const (
	keyRepeatDelay = 25
	keyRepeatRate  = 2
)

var moveKeys = []struct {
	key ebiten.Key
	dir client.Direction
}{
	{ebiten.KeyArrowUp, client.Up},
	{ebiten.KeyArrowDown, client.Down},
	{ebiten.KeyArrowLeft, client.Left},
	{ebiten.KeyArrowRight, client.Right},
}

// clipboardReady is set when clipboard.Init succeeded.
var clipboardReady bool

// Game is the Ebiten game: Update is the render tick, Draw the renderer.
type Game struct {
	ctx    context.Context
	sess   *client.Session
	alerts *client.Alerts

	field    client.TextField
	renderer *render.Renderer
	pal      palette
	chars    []rune

	lastSettingsSave time.Time
}

func newGame(ctx context.Context, sess *client.Session, alerts *client.Alerts) *Game {
	pal := themePalette()
	return &Game{
		ctx:    ctx,
		sess:   sess,
		alerts: alerts,
		pal:    pal,
		renderer: &render.Renderer{
			CellSize:   cellSize,
			Face:       labelFont,
			Background: pal.Background,
			LabelColor: pal.Label,
			LabelPlate: pal.LabelPlate,
		},
	}
}

// repeating reports whether key was just pressed or is auto-repeating.
func repeating(key ebiten.Key) bool {
	d := inpututil.KeyPressDuration(key)
	if d == 1 {
		return true
	}
	return d >= keyRepeatDelay && (d-keyRepeatDelay)%keyRepeatRate == 0
}

func (g *Game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}

	now := time.Now()
	if settingsDirty && now.Sub(g.lastSettingsSave) >= time.Second {
		saveSettings()
		settingsDirty = false
		g.lastSettingsSave = now
	}

	// An open alert swallows all input until dismissed.
	if _, ok := g.alerts.Current(); ok {
		if inpututil.IsKeyJustPressed(ebiten.KeyEnter) ||
			inpututil.IsKeyJustPressed(ebiten.KeyEscape) ||
			inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
			g.alerts.Dismiss()
		}
		if g.sess.IsReady() {
			g.sess.Tick(gs.Step)
		}
		return nil
	}

	// Without an identity nothing runs: no animation and no input.
	if !g.sess.IsReady() {
		return nil
	}

	g.sess.Tick(gs.Step)
	g.handleInput()
	return nil
}

func (g *Game) handleInput() {
	ctl := g.sess.Controller()
	for _, mk := range moveKeys {
		if repeating(mk.key) {
			if target, ok := ctl.Move(g.ctx, mk.dir); ok {
				logDebug("move %v -> %d,%d", mk.dir, target.X, target.Y)
			}
		}
	}

	g.chars = ebiten.AppendInputChars(g.chars[:0])
	if len(g.chars) > 0 {
		g.field.Insert(g.chars...)
	}
	if repeating(ebiten.KeyBackspace) {
		g.field.Backspace()
	}
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControl) || ebiten.IsKeyPressed(ebiten.KeyMeta)
	if ctrl && inpututil.IsKeyJustPressed(ebiten.KeyV) && clipboardReady {
		if txt := clipboard.Read(clipboard.FmtText); len(txt) > 0 {
			g.field.InsertString(string(txt))
		}
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) || inpututil.IsKeyJustPressed(ebiten.KeyNumpadEnter) {
		ctl.Speak(g.ctx, &g.field)
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	grid := screen.SubImage(image.Rect(0, 0, screenW, gridH)).(*ebiten.Image)
	g.renderer.Draw(grid, render.Plan(g.sess.Store().All(), cellSize))
	g.drawInputBar(screen)
	if a, ok := g.alerts.Current(); ok {
		g.drawAlert(screen, a)
	}
}

func (g *Game) drawInputBar(screen *ebiten.Image) {
	vector.DrawFilledRect(screen, 0, gridH, screenW, inputBarH, g.pal.Bar, false)
	prompt := "> " + g.field.Value()
	if (time.Now().UnixMilli()/500)%2 == 0 {
		prompt += "_"
	}
	if !g.sess.IsReady() {
		prompt = "not connected"
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(8, gridH+(inputBarH-uiFont.Metrics().HLineGap-uiFont.Metrics().HAscent-uiFont.Metrics().HDescent)/2)
	op.ColorScale.ScaleWithColor(g.pal.BarText)
	text.Draw(screen, prompt, uiFont, op)
}

func (g *Game) drawAlert(screen *ebiten.Image, a client.Alert) {
	vector.DrawFilledRect(screen, 0, 0, screenW, screenH, g.pal.Shade, false)

	title := "Error"
	if a.Severity == client.SeverityWarning {
		title = "Warning"
	}
	if n := g.alerts.Len(); n > 1 {
		title = fmt.Sprintf("%s (1 of %d)", title, n)
	}
	body := a.Message + "\n\nPress Enter to dismiss."

	tw, th := text.Measure(body, uiFont, uiFont.Metrics().HAscent+uiFont.Metrics().HDescent+4)
	w := max(tw+40, 360)
	h := th + 70
	x := (screenW - w) / 2
	y := (screenH - h) / 2
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), g.pal.AlertBG, false)
	vector.StrokeRect(screen, float32(x), float32(y), float32(w), float32(h), 2, color.RGBA{0xc0, 0x30, 0x30, 0xff}, false)

	op := &text.DrawOptions{}
	op.GeoM.Translate(x+20, y+14)
	op.ColorScale.ScaleWithColor(g.pal.AlertText)
	text.Draw(screen, title, uiFont, op)

	op = &text.DrawOptions{}
	op.LineSpacing = uiFont.Metrics().HAscent + uiFont.Metrics().HDescent + 4
	op.GeoM.Translate(x+20, y+46)
	op.ColorScale.ScaleWithColor(g.pal.AlertText)
	text.Draw(screen, body, uiFont, op)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth > 512 && outsideHeight > 384 {
		if gs.WindowWidth != outsideWidth || gs.WindowHeight != outsideHeight {
			gs.WindowWidth = outsideWidth
			gs.WindowHeight = outsideHeight
			settingsDirty = true
		}
	}
	return screenW, screenH
}

func runGame(g *Game) {
	ebiten.SetWindowTitle(windowTitle)
	ebiten.SetWindowSize(gs.WindowWidth, gs.WindowHeight)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(gs.TickRate)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		logError("ebiten: %v", err)
	}
	saveSettings()
}
