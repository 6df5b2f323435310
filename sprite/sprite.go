// Package sprite loads avatar sprite sheets in the background.
package sprite

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/remeh/sizedwaitgroup"

	"gridchat/world"
)

// Sheet geometry: the first frame of every sheet sits at the origin.
const (
	FrameW, FrameH = 64, 128
)

// Source fetches the encoded bytes of a sprite sheet by name.
type Source interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// entry is the shared load state of one sheet name.
type entry struct {
	done chan struct{}
	img  image.Image
	err  error

	once sync.Once
	eimg *ebiten.Image
}

// Handle is an avatar's reference to its sprite sheet.
type Handle struct {
	Name string
	e    *entry
	conv func(image.Image) *ebiten.Image
}

// Ready reports whether the sheet finished loading, successfully or not.
func (h *Handle) Ready() bool {
	select {
	case <-h.e.done:
		return true
	default:
		return false
	}
}

// Err returns the load error once Ready.
func (h *Handle) Err() error {
	if !h.Ready() {
		return nil
	}
	return h.e.err
}

// Decoded returns the decoded sheet, or nil while loading or after a failure.
func (h *Handle) Decoded() image.Image {
	if !h.Ready() {
		return nil
	}
	return h.e.img
}

// Image returns the sheet as a GPU image, or nil if it is not available.
// Call it from the draw loop.
func (h *Handle) Image() *ebiten.Image {
	img := h.Decoded()
	if img == nil {
		return nil
	}
	h.e.once.Do(func() {
		h.e.eimg = h.conv(img)
	})
	return h.e.eimg
}

// Wait blocks until the sheet is loaded or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.e.done:
		return h.e.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Loader fetches and decodes sheets, at most once per name, with a bounded
// number of concurrent fetches.
type Loader struct {
	ctx     context.Context
	src     Source
	timeout time.Duration
	limit   sizedwaitgroup.SizedWaitGroup
	pending sync.WaitGroup

	mu      sync.Mutex
	entries map[string]*entry

	// Debugf, when set, receives a line per completed load.
	Debugf func(format string, v ...any)

	conv func(image.Image) *ebiten.Image
}

// NewLoader returns a loader reading from src. Fetches stop when ctx is done.
func NewLoader(ctx context.Context, src Source, concurrency int, timeout time.Duration) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Loader{
		ctx:     ctx,
		src:     src,
		timeout: timeout,
		limit:   sizedwaitgroup.New(concurrency),
		entries: make(map[string]*entry),
		conv:    ebiten.NewImageFromImage,
	}
}

// Load returns a handle for name and starts fetching it if nobody has asked
// for it yet. It never blocks.
func (l *Loader) Load(name string) world.Sprite {
	return l.Handle(name)
}

// Handle is Load with the concrete return type.
func (l *Loader) Handle(name string) *Handle {
	l.mu.Lock()
	e, ok := l.entries[name]
	if !ok {
		e = &entry{done: make(chan struct{})}
		l.entries[name] = e
	}
	l.mu.Unlock()
	if !ok {
		l.pending.Add(1)
		go l.fetch(name, e)
	}
	return &Handle{Name: name, e: e, conv: l.conv}
}

// Wait blocks until every started fetch has finished.
func (l *Loader) Wait() {
	l.pending.Wait()
}

func (l *Loader) fetch(name string, e *entry) {
	defer l.pending.Done()
	l.limit.Add()
	defer l.limit.Done()
	defer close(e.done)

	ctx := l.ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}
	data, err := l.src.Fetch(ctx, name)
	if err != nil {
		e.err = fmt.Errorf("sprite %s: %w", name, err)
		log.Printf("sprite: %v", err)
		return
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		e.err = fmt.Errorf("sprite %s: decode: %w", name, err)
		log.Printf("sprite: %s: decode: %v", name, err)
		return
	}
	e.img = img
	if l.Debugf != nil {
		b := img.Bounds()
		l.Debugf("sprite %s loaded: %dx%d, %s", name, b.Dx(), b.Dy(), humanize.Bytes(uint64(len(data))))
	}
}
