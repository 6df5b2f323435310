package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gridchat/world"
)

// Rules of the avatar server, mirrored by Fake.
const (
	FakeGridW, FakeGridH = 16, 12
	fakeSpriteCount      = 43
	fakeSpeechLife       = 5 * time.Second
	fakeStaleAfter       = 30 * time.Second
)

var npcLines = []string{
	"hello!",
	"anyone around?",
	"nice weather",
	"brb",
	"lost again...",
}

type fakeAvatar struct {
	id         world.ID
	x, y       int
	image      string
	text       string
	textExpiry time.Time
	lastSeen   time.Time
	npc        bool
}

// Fake is an in-memory avatar server. It answers the gateway calls directly
// and also serves the HTTP API, so the HTTP gateway can be tested against it.
type Fake struct {
	mu      sync.Mutex
	avatars []*fakeAvatar
	now     func() time.Time
	rnd     *rand.Rand

	// failList makes the next n List calls fail.
	failList int
}

// NewFake returns an empty fake server seeded with seed.
func NewFake(seed int64) *Fake {
	return &Fake{
		now: time.Now,
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// SetClock replaces the fake's time source.
func (f *Fake) SetClock(now func() time.Time) {
	f.mu.Lock()
	f.now = now
	f.mu.Unlock()
}

// FailList makes the next n List calls return a server error.
func (f *Fake) FailList(n int) {
	f.mu.Lock()
	f.failList = n
	f.mu.Unlock()
}

func (f *Fake) spawnLocked(npc bool) *fakeAvatar {
	a := &fakeAvatar{
		id:       world.ID(len(f.avatars) + 1),
		x:        f.rnd.Intn(FakeGridW),
		y:        f.rnd.Intn(FakeGridH),
		image:    fmt.Sprintf("%d.png", f.rnd.Intn(fakeSpriteCount)+1),
		lastSeen: f.now(),
		npc:      npc,
	}
	f.avatars = append(f.avatars, a)
	return a
}

func (f *Fake) findLocked(id world.ID) *fakeAvatar {
	for _, a := range f.avatars {
		if a.id == id {
			return a
		}
	}
	return nil
}

func notFound(op string, id world.ID) error {
	return &Error{Op: op, Message: fmt.Sprintf("No avatar found with id %d.", id)}
}

// CreateSelf adds an avatar at a random cell with a random sprite.
func (f *Fake) CreateSelf(ctx context.Context) (world.ID, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("%s: %w", OpCreate, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spawnLocked(false).id, nil
}

// List returns avatars seen in the last 30 seconds. Speech older than five
// seconds is cleared.
func (f *Fake) List(ctx context.Context) ([]world.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", OpList, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failList > 0 {
		f.failList--
		return nil, &Error{Op: OpList, Message: "server unavailable"}
	}
	now := f.now()
	out := make([]world.Record, 0, len(f.avatars))
	for _, a := range f.avatars {
		if a.lastSeen.Before(now.Add(-fakeStaleAfter)) {
			continue
		}
		if now.After(a.textExpiry) {
			a.text = ""
		}
		out = append(out, world.Record{ID: a.id, X: a.x, Y: a.y, Text: a.text, Image: a.image})
	}
	return out, nil
}

// UpdatePosition moves an avatar, clamping to the grid.
func (f *Fake) UpdatePosition(ctx context.Context, id world.ID, c world.Cell) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", OpUpdate, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.findLocked(id)
	if a == nil {
		return notFound(OpUpdate, id)
	}
	a.x = clamp(c.X, 0, FakeGridW-1)
	a.y = clamp(c.Y, 0, FakeGridH-1)
	a.lastSeen = f.now()
	return nil
}

// Speak sets an avatar's text for five seconds.
func (f *Fake) Speak(ctx context.Context, id world.ID, text string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", OpSpeak, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.findLocked(id)
	if a == nil {
		return notFound(OpSpeak, id)
	}
	now := f.now()
	a.text = text
	a.textExpiry = now.Add(fakeSpeechLife)
	a.lastSeen = now
	return nil
}

// AddNPC adds a wandering avatar and returns its id.
func (f *Fake) AddNPC() world.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.spawnLocked(true).id
}

// Wander moves every NPC one random step and lets some of them talk.
func (f *Fake) Wander() {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	for _, a := range f.avatars {
		if !a.npc {
			continue
		}
		a.lastSeen = now
		switch f.rnd.Intn(4) {
		case 0:
			a.x = clamp(a.x+1, 0, FakeGridW-1)
		case 1:
			a.x = clamp(a.x-1, 0, FakeGridW-1)
		case 2:
			a.y = clamp(a.y+1, 0, FakeGridH-1)
		case 3:
			a.y = clamp(a.y-1, 0, FakeGridH-1)
		}
		if f.rnd.Intn(8) == 0 {
			a.text = npcLines[f.rnd.Intn(len(npcLines))]
			a.textExpiry = now.Add(fakeSpeechLife)
		}
	}
}

// RunNPCs calls Wander every interval until ctx is done.
func (f *Fake) RunNPCs(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.Wander()
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ServeHTTP implements the server's HTTP API on top of the fake.
func (f *Fake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	switch {
	case r.URL.Path == "/avatar/new" && r.Method == http.MethodPost:
		id, err := f.CreateSelf(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, reply{Status: "OK", ID: &id})
	case r.URL.Path == "/avatar/list" && r.Method == http.MethodGet:
		recs, err := f.List(ctx)
		if err != nil {
			writeError(w, err)
			return
		}
		entries := make([]listEntry, len(recs))
		for i, rec := range recs {
			entries[i] = listEntry{ID: rec.ID, X: rec.X, Y: rec.Y, Text: rec.Text, Image: rec.Image}
		}
		writeJSON(w, entries)
	case r.URL.Path == "/avatar/update" && r.Method == http.MethodPost:
		id, err := formID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		x, errX := strconv.Atoi(r.FormValue("x"))
		y, errY := strconv.Atoi(r.FormValue("y"))
		if errX != nil || errY != nil {
			writeError(w, &Error{Op: OpUpdate, Message: "bad coordinates"})
			return
		}
		if err := f.UpdatePosition(ctx, id, world.Cell{X: x, Y: y}); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, reply{Status: "OK"})
	case r.URL.Path == "/avatar/speak" && r.Method == http.MethodPost:
		id, err := formID(r)
		if err != nil {
			writeError(w, err)
			return
		}
		if err := f.Speak(ctx, id, r.FormValue("text")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, reply{Status: "OK"})
	default:
		http.NotFound(w, r)
	}
}

func formID(r *http.Request) (world.ID, error) {
	if err := r.ParseMultipartForm(1 << 16); err != nil {
		return 0, &Error{Op: "form", Message: err.Error()}
	}
	n, err := strconv.ParseInt(r.FormValue("id"), 10, 64)
	if err != nil {
		return 0, &Error{Op: "form", Message: "bad id"}
	}
	return world.ID(n), nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	msg := err.Error()
	if ge, ok := err.(*Error); ok {
		msg = ge.Message
	}
	writeJSON(w, reply{Error: &msg})
}
