package client

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"gridchat/world"
)

// Direction is one of the four movement keys.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

var directionNames = [...]string{"up", "down", "left", "right"}

func (d Direction) String() string {
	if d < Up || d > Right {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// Delta returns the cell offset of one step in d.
func (d Direction) Delta() world.Cell {
	switch d {
	case Up:
		return world.Cell{Y: -1}
	case Down:
		return world.Cell{Y: 1}
	case Left:
		return world.Cell{X: -1}
	case Right:
		return world.Cell{X: 1}
	}
	return world.Cell{}
}

// Controller turns local input into requests for the session's avatar. It
// allows one move in flight: a direction is ignored until the previous move's
// animation has finished.
type Controller struct {
	s        *Session
	inflight sync.WaitGroup
}

// Moving reports whether the local avatar has a move in flight. It reads the
// same idle condition the store and the interpolator use.
func (c *Controller) Moving() bool {
	a, ok := c.s.store.Local()
	return ok && !a.Idle()
}

// Move starts a one-cell move in d. It returns the target cell and true when
// a move was recorded and an update request sent. Moves off the grid, moves
// while another is in flight, and moves before the local avatar has arrived
// are ignored.
func (c *Controller) Move(ctx context.Context, d Direction) (world.Cell, bool) {
	a, ok := c.s.store.Local()
	if !ok || !a.Idle() {
		return world.Cell{}, false
	}
	target := a.Last.Add(d.Delta())
	if target == a.Last || !c.s.cfg.Grid.Contains(target) {
		return world.Cell{}, false
	}
	// The store re-checks idleness under its lock; a sync may have started a
	// move since Local returned.
	if err := c.s.store.RecordLocalMove(target); err != nil {
		return world.Cell{}, false
	}
	id := a.ID
	c.send(ctx, func(rctx context.Context) error {
		return c.s.gw.UpdatePosition(rctx, id, target)
	}, "Could not move")
	return target, true
}

// Speak sends the field's text as the local avatar's speech. The field is
// cleared immediately, whatever the server answers.
func (c *Controller) Speak(ctx context.Context, field *TextField) bool {
	raw := field.Value()
	field.Clear()
	id, ok := c.s.store.LocalID()
	if !ok {
		return false
	}
	text := CleanSpeech(raw)
	c.send(ctx, func(rctx context.Context) error {
		return c.s.gw.Speak(rctx, id, text)
	}, "Could not speak")
	return true
}

// send runs call in the background. Failures are alerted; optimistic local
// state is left as it is.
func (c *Controller) send(ctx context.Context, call func(context.Context) error, what string) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		rctx, cancel := c.s.requestContext(ctx)
		defer cancel()
		if err := call(rctx); err != nil {
			c.s.warnf("%s: %v", strings.ToLower(what), err)
			c.s.alert(SeverityError, fmt.Sprintf("%s: %v", what, err))
		}
	}()
}

// Wait blocks until every request sent so far has completed.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// CleanSpeech normalizes text to NFC, drops control characters and trims it
// to MaxSpeechRunes.
func CleanSpeech(s string) string {
	s = norm.NFC.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	if r := []rune(s); len(r) > MaxSpeechRunes {
		s = string(r[:MaxSpeechRunes])
	}
	return strings.TrimSpace(s)
}
