// Package session holds the signed-in user of every client session and the
// authorization gate evaluated against it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/service"
)

// State is the session state observed by the authorization gate.
type State struct {
	Session *model.Session `json:"session"`
	Loading bool           `json:"loading"`
}

// Store is the session state of one client session. It starts loading and
// stops loading once the first identity notification has been resolved.
// Only the identity change handler of the Manager mutates it.
type Store struct {
	mu         sync.Mutex
	state      State
	identityID string
	generation uint64
	ready      chan struct{}
	readyOnce  sync.Once
	lastSeen   time.Time
}

func newStore() *Store {
	return &Store{
		state:    State{Loading: true},
		ready:    make(chan struct{}),
		lastSeen: time.Now(),
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := State{Loading: s.state.Loading}
	if s.state.Session != nil {
		sess := *s.state.Session
		out.Session = &sess
	}
	return out
}

// Wait blocks until the store stops loading or ctx ends.
func (s *Store) Wait(ctx context.Context) bool {
	select {
	case <-s.ready:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Store) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Store) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Store) markReadyLocked() {
	s.state.Loading = false
	s.readyOnce.Do(func() { close(s.ready) })
}

// signedOut clears the session and invalidates any in-flight resolution.
func (s *Store) signedOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.identityID = ""
	s.state.Session = nil
	s.markReadyLocked()
}

// begin starts the resolution of identityID and returns its generation.
// needed is false when the session already holds that identity.
func (s *Store) begin(identityID string) (gen uint64, needed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.identityID = identityID
	if s.state.Session != nil && s.state.Session.ID == identityID {
		s.markReadyLocked()
		return s.generation, false
	}
	return s.generation, true
}

// finish applies a resolution started by begin. It reports false when the
// resolution is stale because a newer event arrived meanwhile.
func (s *Store) finish(gen uint64, identity *model.Identity, res service.Resolution) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || identity.ID != s.identityID {
		return false
	}
	if res.State == service.Resolved {
		email := res.Record.Email
		if email == "" {
			email = identity.Email
		}
		s.state.Session = &model.Session{ID: identity.ID, Email: email, Role: res.Record.Role}
	}
	s.markReadyLocked()
	return true
}
