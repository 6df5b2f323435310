package sprite

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"path"
)

// maxSheetSize caps a downloaded sheet.
const maxSheetSize = 8 << 20

// HTTPSource fetches sheets from <base>/client/img/<name>.
type HTTPSource struct {
	Base   *url.URL
	Client *http.Client
}

// Fetch downloads the named sheet.
func (s HTTPSource) Fetch(ctx context.Context, name string) ([]byte, error) {
	if name == "" || path.Base(name) != name {
		return nil, fmt.Errorf("bad sprite name %q", name)
	}
	u := s.Base.ResolveReference(&url.URL{Path: "client/img/" + name})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %v: %v", u, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSheetSize))
}

// Placeholder draws a simple figure per name, tinted by a hash of the name.
// It stands in for the server's images in offline mode.
type Placeholder struct{}

// Fetch returns a generated PNG sheet.
func (Placeholder) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	sum := h.Sum32()
	body := color.NRGBA{R: uint8(sum), G: uint8(sum >> 8), B: uint8(sum >> 16), A: 0xff}
	skin := color.NRGBA{R: 0xf1, G: 0xc2, B: 0x7d, A: 0xff}

	img := image.NewNRGBA(image.Rect(0, 0, FrameW, FrameH))
	fill := func(r image.Rectangle, c color.Color) {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.Set(x, y, c)
			}
		}
	}
	fill(image.Rect(20, 8, 44, 36), skin)   // head
	fill(image.Rect(14, 40, 50, 92), body)  // torso
	fill(image.Rect(18, 92, 30, 124), body) // legs
	fill(image.Rect(34, 92, 46, 124), body)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
