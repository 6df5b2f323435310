package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gridchat/world"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newFakeServer(t *testing.T) (*Fake, *HTTP, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	fake := NewFake(1)
	fake.SetClock(clock.now)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	gw, err := NewHTTP(srv.URL, srv.Client())
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	return fake, gw, clock
}

func TestHTTPRoundTrip(t *testing.T) {
	_, gw, _ := newFakeServer(t)
	ctx := context.Background()

	id, err := gw.CreateSelf(ctx)
	if err != nil {
		t.Fatalf("CreateSelf: %v", err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1", id)
	}
	if err := gw.UpdatePosition(ctx, id, world.Cell{X: 4, Y: 5}); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	if err := gw.Speak(ctx, id, "hi there"); err != nil {
		t.Fatalf("Speak: %v", err)
	}
	recs, err := gw.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %+v", recs)
	}
	r := recs[0]
	if r.ID != id || r.X != 4 || r.Y != 5 || r.Text != "hi there" {
		t.Fatalf("record = %+v", r)
	}
	if !strings.HasSuffix(r.Image, ".png") {
		t.Fatalf("image = %q", r.Image)
	}
}

func TestHTTPUpdateClamps(t *testing.T) {
	_, gw, _ := newFakeServer(t)
	ctx := context.Background()
	id, _ := gw.CreateSelf(ctx)
	if err := gw.UpdatePosition(ctx, id, world.Cell{X: -3, Y: 99}); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	recs, _ := gw.List(ctx)
	if recs[0].X != 0 || recs[0].Y != FakeGridH-1 {
		t.Fatalf("record = %+v", recs[0])
	}
}

func TestHTTPUnknownAvatar(t *testing.T) {
	_, gw, _ := newFakeServer(t)
	ctx := context.Background()
	tests := []struct {
		name string
		call func() error
	}{
		{"update", func() error { return gw.UpdatePosition(ctx, 42, world.Cell{}) }},
		{"speak", func() error { return gw.Speak(ctx, 42, "x") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if !IsServerError(err) {
				t.Fatalf("err = %v, want server error", err)
			}
			var ge *Error
			errors.As(err, &ge)
			if ge.Message != "No avatar found with id 42." {
				t.Fatalf("message = %q", ge.Message)
			}
		})
	}
}

func TestHTTPSpeechExpiresAndStaleAvatarsHidden(t *testing.T) {
	fake, gw, clock := newFakeServer(t)
	ctx := context.Background()
	id, _ := gw.CreateSelf(ctx)
	npc := fake.AddNPC()
	_ = gw.Speak(ctx, id, "hello")

	clock.advance(6 * time.Second)
	recs, _ := gw.List(ctx)
	for _, r := range recs {
		if r.Text != "" {
			t.Fatalf("speech did not expire: %+v", r)
		}
	}

	clock.advance(25 * time.Second)
	_ = gw.UpdatePosition(ctx, id, world.Cell{X: 1, Y: 1})
	recs, _ = gw.List(ctx)
	if len(recs) != 1 || recs[0].ID != id {
		t.Fatalf("stale npc %d still listed: %+v", npc, recs)
	}
}

func TestHTTPListServerError(t *testing.T) {
	fake, gw, _ := newFakeServer(t)
	fake.FailList(1)
	_, err := gw.List(context.Background())
	if !IsServerError(err) {
		t.Fatalf("err = %v, want server error", err)
	}
	if _, err := gw.List(context.Background()); err != nil {
		t.Fatalf("second List: %v", err)
	}
}

func TestHTTPMalformedReplies(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		server bool
	}{
		{"garbage", http.StatusOK, "not json", false},
		{"objectWithoutError", http.StatusOK, `{"status":"OK"}`, false},
		{"status500", http.StatusInternalServerError, "boom", false},
		{"status500WithError", http.StatusInternalServerError, `{"error":"db down"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			gw, err := NewHTTP(srv.URL, srv.Client())
			if err != nil {
				t.Fatalf("NewHTTP: %v", err)
			}
			_, err = gw.List(context.Background())
			if err == nil {
				t.Fatalf("List succeeded")
			}
			if got := IsServerError(err); got != tt.server {
				t.Fatalf("IsServerError(%v) = %v, want %v", err, got, tt.server)
			}
			if !strings.HasPrefix(err.Error(), OpList+":") {
				t.Fatalf("error not tagged with op: %v", err)
			}
		})
	}
}

func TestHTTPCreateWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()
	gw, _ := NewHTTP(srv.URL, srv.Client())
	if _, err := gw.CreateSelf(context.Background()); err == nil {
		t.Fatalf("CreateSelf succeeded without id")
	}
}

func TestHTTPRequestShape(t *testing.T) {
	var gotPath, gotID, gotX, gotY string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 16); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		gotID, gotX, gotY = r.FormValue("id"), r.FormValue("x"), r.FormValue("y")
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	}))
	defer srv.Close()
	gw, _ := NewHTTP(srv.URL+"/game", srv.Client())
	if err := gw.UpdatePosition(context.Background(), 12, world.Cell{X: 3, Y: 7}); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	if gotPath != "/game/avatar/update" || gotID != "12" || gotX != "3" || gotY != "7" {
		t.Fatalf("request path=%q id=%q x=%q y=%q", gotPath, gotID, gotX, gotY)
	}
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		in, want string
		bad      bool
	}{
		{in: "localhost:8081", want: "http://localhost:8081/"},
		{in: "https://example.com/grid", want: "https://example.com/grid/"},
		{in: "http://example.com/", want: "http://example.com/"},
		{in: "", bad: true},
		{in: "http://", bad: true},
	}
	for _, tt := range tests {
		u, err := BaseURL(tt.in)
		if tt.bad {
			if err == nil {
				t.Fatalf("BaseURL(%q) = %v, want error", tt.in, u)
			}
			continue
		}
		if err != nil {
			t.Fatalf("BaseURL(%q): %v", tt.in, err)
		}
		if u.String() != tt.want {
			t.Fatalf("BaseURL(%q) = %q, want %q", tt.in, u.String(), tt.want)
		}
	}
}

func TestFakeContextCancelled(t *testing.T) {
	fake := NewFake(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fake.List(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}

func TestFakeWanderStaysOnGrid(t *testing.T) {
	fake := NewFake(7)
	for i := 0; i < 5; i++ {
		fake.AddNPC()
	}
	for i := 0; i < 500; i++ {
		fake.Wander()
	}
	recs, _ := fake.List(context.Background())
	if len(recs) != 5 {
		t.Fatalf("records = %d", len(recs))
	}
	g := world.Grid{W: FakeGridW, H: FakeGridH}
	for _, r := range recs {
		if !g.Contains(world.Cell{X: r.X, Y: r.Y}) {
			t.Fatalf("npc off grid: %+v", r)
		}
	}
}
