package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gridchat/world"
)

// maxReplySize caps how much of a reply body is read.
const maxReplySize = 1 << 20

// HTTP is the network gateway backed by the avatar server's HTTP API.
type HTTP struct {
	base   *url.URL
	client *http.Client
}

// NewHTTP returns a gateway for host, which may be a bare host:port or a
// full URL. A nil client uses http.DefaultClient.
func NewHTTP(host string, client *http.Client) (*HTTP, error) {
	base, err := BaseURL(host)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{base: base, client: client}, nil
}

// BaseURL parses host into the server's root URL.
func BaseURL(host string) (*url.URL, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, fmt.Errorf("empty host")
	}
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse host %q: %w", host, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse host %q: missing host", host)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/"
	return u, nil
}

// Base returns the server's root URL.
func (g *HTTP) Base() *url.URL {
	u := *g.base
	return &u
}

func (g *HTTP) endpoint(p string) string {
	return g.base.ResolveReference(&url.URL{Path: p}).String()
}

// CreateSelf asks the server for a new avatar and returns its id.
func (g *HTTP) CreateSelf(ctx context.Context) (world.ID, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint("avatar/new"), nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", OpCreate, err)
	}
	body, err := g.do(OpCreate, req)
	if err != nil {
		return 0, err
	}
	r, err := decodeReply(OpCreate, body)
	if err != nil {
		return 0, err
	}
	if r.ID == nil {
		return 0, fmt.Errorf("%s: reply has no id", OpCreate)
	}
	return *r.ID, nil
}

// List fetches every avatar the server currently knows.
func (g *HTTP) List(ctx context.Context) ([]world.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint("avatar/list"), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpList, err)
	}
	body, err := g.do(OpList, req)
	if err != nil {
		return nil, err
	}
	return decodeList(body)
}

// UpdatePosition reports the avatar's new cell.
func (g *HTTP) UpdatePosition(ctx context.Context, id world.ID, c world.Cell) error {
	return g.postForm(ctx, OpUpdate, "avatar/update", [][2]string{
		{"id", strconv.FormatInt(int64(id), 10)},
		{"x", strconv.Itoa(c.X)},
		{"y", strconv.Itoa(c.Y)},
	})
}

// Speak sets the avatar's speech text.
func (g *HTTP) Speak(ctx context.Context, id world.ID, text string) error {
	return g.postForm(ctx, OpSpeak, "avatar/speak", [][2]string{
		{"id", strconv.FormatInt(int64(id), 10)},
		{"text", text},
	})
}

// postForm sends fields as multipart/form-data, which is what the server's
// update and speak handlers consume.
func (g *HTTP) postForm(ctx context.Context, op, p string, fields [][2]string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(p), &buf)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	body, err := g.do(op, req)
	if err != nil {
		return err
	}
	_, err = decodeReply(op, body)
	return err
}

func (g *HTTP) do(op string, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplySize))
	if err != nil {
		return nil, fmt.Errorf("%s: read reply: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Prefer the server's own message when it sent one.
		if _, derr := decodeReply(op, body); IsServerError(derr) {
			return nil, derr
		}
		return nil, fmt.Errorf("%s: %s", op, resp.Status)
	}
	return body, nil
}

func decodeReply(op string, body []byte) (reply, error) {
	var r reply
	if err := json.Unmarshal(body, &r); err != nil {
		return reply{}, fmt.Errorf("%s: decode reply: %w", op, err)
	}
	if r.Error != nil {
		return reply{}, &Error{Op: op, Message: *r.Error}
	}
	return r, nil
}

func decodeList(body []byte) ([]world.Record, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if _, err := decodeReply(OpList, trimmed); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%s: unexpected object reply", OpList)
	}
	var entries []listEntry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, fmt.Errorf("%s: decode reply: %w", OpList, err)
	}
	out := make([]world.Record, len(entries))
	for i, e := range entries {
		out[i] = e.record()
	}
	return out, nil
}
