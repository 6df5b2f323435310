package sprite

import (
	"context"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
)

type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
	inner Source
}

func (s *countingSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	s.calls[name]++
	s.mu.Unlock()
	return s.inner.Fetch(ctx, name)
}

type failingSource struct{}

func (failingSource) Fetch(context.Context, string) ([]byte, error) {
	return nil, errors.New("unreachable")
}

type garbageSource struct{}

func (garbageSource) Fetch(context.Context, string) ([]byte, error) {
	return []byte("not a png"), nil
}

func newTestLoader(src Source) *Loader {
	l := NewLoader(context.Background(), src, 2, time.Second)
	l.conv = func(image.Image) *ebiten.Image { return nil }
	return l
}

func TestLoaderFetchesOncePerName(t *testing.T) {
	src := &countingSource{calls: map[string]int{}, inner: Placeholder{}}
	l := newTestLoader(src)
	var handles []*Handle
	for i := 0; i < 5; i++ {
		handles = append(handles, l.Handle("1.png"), l.Handle("2.png"))
	}
	l.Wait()
	if src.calls["1.png"] != 1 || src.calls["2.png"] != 1 {
		t.Fatalf("calls = %v", src.calls)
	}
	for _, h := range handles {
		if !h.Ready() || h.Err() != nil {
			t.Fatalf("handle %s ready=%v err=%v", h.Name, h.Ready(), h.Err())
		}
		b := h.Decoded().Bounds()
		if b.Dx() != FrameW || b.Dy() != FrameH {
			t.Fatalf("bounds = %v", b)
		}
	}
}

func TestLoaderErrors(t *testing.T) {
	tests := []struct {
		name string
		src  Source
	}{
		{"fetch", failingSource{}},
		{"decode", garbageSource{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLoader(tt.src)
			h := l.Handle("x.png")
			if err := h.Wait(context.Background()); err == nil {
				t.Fatalf("Wait succeeded")
			}
			if !h.Ready() || h.Decoded() != nil || h.Image() != nil {
				t.Fatalf("failed handle exposes an image")
			}
		})
	}
}

func TestHandleNotReadyWhileLoading(t *testing.T) {
	release := make(chan struct{})
	src := blockingSource{release: release}
	l := newTestLoader(src)
	h := l.Handle("slow.png")
	if h.Ready() || h.Decoded() != nil || h.Err() != nil {
		t.Fatalf("handle ready before fetch finished")
	}
	close(release)
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

type blockingSource struct{ release chan struct{} }

func (s blockingSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	<-s.release
	return Placeholder{}.Fetch(ctx, name)
}

func TestHTTPSource(t *testing.T) {
	sheet, _ := Placeholder{}.Fetch(context.Background(), "7.png")
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/client/img/7.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(sheet)
	}))
	defer srv.Close()
	base, _ := url.Parse(srv.URL + "/")
	src := HTTPSource{Base: base, Client: srv.Client()}

	l := newTestLoader(src)
	h := l.Handle("7.png")
	if err := h.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := src.Fetch(context.Background(), "missing.png"); err == nil {
		t.Fatalf("missing sheet fetched")
	}
	if _, err := src.Fetch(context.Background(), "../secret.png"); err == nil {
		t.Fatalf("path traversal accepted")
	}
	if hits.Load() != 2 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

func TestPlaceholderDiffersByName(t *testing.T) {
	a, _ := Placeholder{}.Fetch(context.Background(), "1.png")
	b, _ := Placeholder{}.Fetch(context.Background(), "2.png")
	if string(a) == string(b) {
		t.Fatalf("placeholders identical")
	}
}
