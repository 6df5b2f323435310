package world

import (
	"errors"
	"sync"
)

var (
	// ErrNoLocalAvatar is returned when the local identity has not been
	// seen in a sync yet.
	ErrNoLocalAvatar = errors.New("local avatar not known yet")
	// ErrMoving is returned when the local avatar still has a move in flight.
	ErrMoving = errors.New("local avatar is moving")
)

// Record is one avatar as reported by the server's list call.
type Record struct {
	ID    ID
	X, Y  int
	Text  string
	Image string
}

// SpriteLoader starts loading a sprite sheet by name. Load must not block.
type SpriteLoader interface {
	Load(image string) Sprite
}

// MergeResult summarizes one MergeSync call.
type MergeResult struct {
	Added    int
	Updated  int
	Deferred int // targets withheld because the avatar was mid-move
	// LocalMissing is set when the local identity is assigned but the
	// response did not include it.
	LocalMissing bool
}

// Store is the local cache of known avatars. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	avatars map[ID]*Avatar
	order   []ID

	local    ID
	hasLocal bool

	sprites SpriteLoader
}

// NewStore returns an empty store. sprites may be nil, in which case avatars
// get no sprite handle.
func NewStore(sprites SpriteLoader) *Store {
	return &Store{
		avatars: make(map[ID]*Avatar),
		sprites: sprites,
	}
}

// SetLocal records the identity the server issued to this client.
func (s *Store) SetLocal(id ID) {
	s.mu.Lock()
	s.local = id
	s.hasLocal = true
	s.mu.Unlock()
}

// LocalID returns the local identity, if assigned.
func (s *Store) LocalID() (ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local, s.hasLocal
}

// MergeSync reconciles the full authoritative avatar list into the store.
// Every known avatar is first marked inactive; each record then reactivates
// or creates its avatar. Targets of avatars with a move in flight are left
// alone so a lagging server position never rewinds an animation.
func (s *Store) MergeSync(records []Record) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.avatars {
		a.Active = false
	}

	var res MergeResult
	for _, r := range records {
		cell := Cell{X: r.X, Y: r.Y}
		a, ok := s.avatars[r.ID]
		if !ok {
			a = &Avatar{
				ID:     r.ID,
				Last:   cell,
				Target: cell,
				Text:   r.Text,
				Active: true,
				Image:  r.Image,
			}
			if s.sprites != nil {
				a.Sprite = s.sprites.Load(r.Image)
			}
			s.avatars[r.ID] = a
			s.order = append(s.order, r.ID)
			res.Added++
			continue
		}
		a.Text = r.Text
		a.Active = true
		if a.Idle() {
			a.Target = cell
		} else if a.Target != cell {
			res.Deferred++
		}
		res.Updated++
	}

	if s.hasLocal {
		if a, ok := s.avatars[s.local]; !ok || !a.Active {
			res.LocalMissing = true
		}
	}
	return res
}

// Tick advances every active avatar by step and returns how many finished
// their move.
func (s *Store) Tick(step float64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	done := 0
	for _, id := range s.order {
		a := s.avatars[id]
		if !a.Active {
			continue
		}
		if a.Advance(step) {
			done++
		}
	}
	return done
}

// RecordLocalMove optimistically sets the local avatar's target ahead of
// server confirmation. The move is refused while a previous one is in flight.
func (s *Store) RecordLocalMove(target Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasLocal {
		return ErrNoLocalAvatar
	}
	a, ok := s.avatars[s.local]
	if !ok {
		return ErrNoLocalAvatar
	}
	if !a.Idle() {
		return ErrMoving
	}
	a.Target = target
	return nil
}

// Get returns a copy of the avatar with the given id.
func (s *Store) Get(id ID) (Avatar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.avatars[id]
	if !ok {
		return Avatar{}, false
	}
	return *a, true
}

// Local returns a copy of the local identity's avatar.
func (s *Store) Local() (Avatar, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasLocal {
		return Avatar{}, false
	}
	a, ok := s.avatars[s.local]
	if !ok {
		return Avatar{}, false
	}
	return *a, true
}

// All returns copies of every known avatar in insertion order.
func (s *Store) All() []Avatar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Avatar, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.avatars[id])
	}
	return out
}

// Active returns copies of the avatars present in the latest sync, in
// insertion order.
func (s *Store) Active() []Avatar {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Avatar, 0, len(s.order))
	for _, id := range s.order {
		if a := s.avatars[id]; a.Active {
			out = append(out, *a)
		}
	}
	return out
}

// Len returns the number of known avatars.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}
