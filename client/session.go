// Package client ties the avatar store to the server: bootstrap, the periodic
// sync, and the local input controller.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hako/durafmt"
	"golang.org/x/time/rate"

	"gridchat/world"
)

// Gateway is the server boundary used by a session.
type Gateway interface {
	CreateSelf(ctx context.Context) (world.ID, error)
	List(ctx context.Context) ([]world.Record, error)
	UpdatePosition(ctx context.Context, id world.ID, c world.Cell) error
	Speak(ctx context.Context, id world.ID, text string) error
}

// Config holds session timing and geometry.
type Config struct {
	Grid           world.Grid
	SyncInterval   time.Duration
	RequestTimeout time.Duration
	// ReportEvery limits how often repeated sync failures raise an alert.
	ReportEvery time.Duration
}

// DefaultConfig matches the web client: a 16x12 grid polled every
// 150ms.
var DefaultConfig = Config{
	Grid:           world.Grid{W: 16, H: 12},
	SyncInterval:   150 * time.Millisecond,
	RequestTimeout: 5 * time.Second,
	ReportEvery:    5 * time.Second,
}

// Session owns the local identity and the avatar store for one connection.
type Session struct {
	cfg    Config
	gw     Gateway
	store  *world.Store
	alerts Alerter

	// Debugf and Warnf receive log lines when set.
	Debugf func(format string, v ...any)
	Warnf  func(format string, v ...any)

	syncMu       sync.Mutex
	reports      *rate.Limiter
	failingSince time.Time
	localMissing bool
	now          func() time.Time

	ready chan struct{}
	ctl   *Controller
}

// NewSession returns a session that has not bootstrapped yet.
func NewSession(cfg Config, gw Gateway, store *world.Store, alerts Alerter) *Session {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultConfig.SyncInterval
	}
	if cfg.ReportEvery <= 0 {
		cfg.ReportEvery = DefaultConfig.ReportEvery
	}
	if cfg.Grid.W <= 0 || cfg.Grid.H <= 0 {
		cfg.Grid = DefaultConfig.Grid
	}
	s := &Session{
		cfg:     cfg,
		gw:      gw,
		store:   store,
		alerts:  alerts,
		reports: rate.NewLimiter(rate.Every(cfg.ReportEvery), 1),
		now:     time.Now,
		ready:   make(chan struct{}),
	}
	s.ctl = &Controller{s: s}
	return s
}

// Store returns the session's avatar store.
func (s *Session) Store() *world.Store { return s.store }

// Controller returns the session's input controller.
func (s *Session) Controller() *Controller { return s.ctl }

// Config returns the effective configuration.
func (s *Session) Config() Config { return s.cfg }

// Ready is closed once Bootstrap succeeds.
func (s *Session) Ready() <-chan struct{} { return s.ready }

// IsReady reports whether Bootstrap succeeded.
func (s *Session) IsReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

func (s *Session) debugf(format string, v ...any) {
	if s.Debugf != nil {
		s.Debugf(format, v...)
	}
}

func (s *Session) warnf(format string, v ...any) {
	if s.Warnf != nil {
		s.Warnf(format, v...)
	}
}

func (s *Session) alert(sev Severity, msg string) {
	if s.alerts != nil {
		s.alerts.Alert(Alert{Severity: sev, Message: msg, Time: s.now()})
	}
}

func (s *Session) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// Bootstrap obtains the local identity and runs a first sync. On failure the
// session stays unusable: the caller must not start the sync loop or accept
// input.
func (s *Session) Bootstrap(ctx context.Context) error {
	rctx, cancel := s.requestContext(ctx)
	id, err := s.gw.CreateSelf(rctx)
	cancel()
	if err != nil {
		s.alert(SeverityError, fmt.Sprintf("Could not join the world: %v", err))
		return fmt.Errorf("bootstrap: %w", err)
	}
	s.store.SetLocal(id)
	close(s.ready)
	s.debugf("joined as avatar %d", id)
	_, _ = s.SyncOnce(ctx)
	return nil
}

// SyncOnce fetches the avatar list and merges it. A failed fetch leaves the
// store untouched. Calls are serialized so at most one round-trip is in
// flight and merges never interleave.
func (s *Session) SyncOnce(ctx context.Context) (world.MergeResult, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	rctx, cancel := s.requestContext(ctx)
	recs, err := s.gw.List(rctx)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return world.MergeResult{}, err
		}
		if s.failingSince.IsZero() {
			s.failingSince = s.now()
		}
		s.warnf("sync: %v", err)
		if s.reports.Allow() {
			s.alert(SeverityError, fmt.Sprintf("Lost contact with the server: %v", err))
		}
		return world.MergeResult{}, err
	}

	res := s.store.MergeSync(recs)
	if !s.failingSince.IsZero() {
		down := s.now().Sub(s.failingSince)
		s.warnf("sync recovered after %s", durafmt.Parse(down).LimitFirstN(2))
		s.failingSince = time.Time{}
	}
	if res.LocalMissing && !s.localMissing {
		id, _ := s.store.LocalID()
		s.alert(SeverityWarning, fmt.Sprintf("The server no longer lists your avatar (id %d).", id))
	}
	s.localMissing = res.LocalMissing
	if res.Added > 0 {
		s.debugf("sync: %d new avatars, %d known", res.Added, s.store.Len())
	}
	return res, nil
}

// RunSync syncs every SyncInterval until ctx is done. Ticks that fire while
// a round-trip is still running are dropped.
func (s *Session) RunSync(ctx context.Context) {
	t := time.NewTicker(s.cfg.SyncInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = s.SyncOnce(ctx)
		}
	}
}

// Tick advances every active avatar's animation by step. It is the render
// tick's only mutation and never touches the network.
func (s *Session) Tick(step float64) {
	s.store.Tick(step)
}
