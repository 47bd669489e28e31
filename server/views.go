package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/match-chat/backend/chat"
	"github.com/onnwee/match-chat/backend/telemetry"
)

var (
	// ErrViewNotFound is returned for unknown or expired view ids.
	ErrViewNotFound = errors.New("view not found")
	// ErrTooManyViews is returned when the store is at capacity.
	ErrTooManyViews = errors.New("too many active views")
)

type view struct {
	mu       sync.Mutex
	matchID  int64
	engine   *chat.Engine
	lastUsed time.Time
}

// ViewStore holds stateful chat views in memory. A view expires once it has
// not been used for the TTL.
type ViewStore struct {
	mu    sync.Mutex
	views map[string]*view
	ttl   time.Duration
	max   int
	now   func() time.Time
}

// NewViewStore creates a store holding at most max views.
func NewViewStore(ttl time.Duration, max int) *ViewStore {
	return &ViewStore{
		views: make(map[string]*view),
		ttl:   ttl,
		max:   max,
		now:   time.Now,
	}
}

// Create registers engine under a new view id.
func (s *ViewStore) Create(matchID int64, engine *chat.Engine) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	if len(s.views) >= s.max {
		return "", ErrTooManyViews
	}
	id := uuid.New().String()
	s.views[id] = &view{matchID: matchID, engine: engine, lastUsed: s.now()}
	telemetry.SetActiveViews(len(s.views))
	return id, nil
}

// With runs fn with exclusive access to the view's engine.
func (s *ViewStore) With(id string, fn func(matchID int64, e *chat.Engine) error) error {
	s.mu.Lock()
	v, ok := s.views[id]
	if ok && s.expired(v) {
		delete(s.views, id)
		telemetry.SetActiveViews(len(s.views))
		ok = false
	}
	if ok {
		v.lastUsed = s.now()
	}
	s.mu.Unlock()
	if !ok {
		return ErrViewNotFound
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	return fn(v.matchID, v.engine)
}

// Delete drops a view. It reports whether the view existed.
func (s *ViewStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.views[id]; !ok {
		return false
	}
	delete(s.views, id)
	telemetry.SetActiveViews(len(s.views))
	return true
}

// Len returns the number of views, expired ones included until swept.
func (s *ViewStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Sweep removes expired views and returns how many were removed.
func (s *ViewStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

// Run sweeps every interval until ctx is done.
func (s *ViewStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("expired chat views removed", slog.Int("count", n), slog.String("component", "views"))
			}
		}
	}
}

// expired must be called with s.mu held.
func (s *ViewStore) expired(v *view) bool {
	return s.now().Sub(v.lastUsed) > s.ttl
}

func (s *ViewStore) sweepLocked() int {
	n := 0
	for id, v := range s.views {
		if s.expired(v) {
			delete(s.views, id)
			n++
		}
	}
	if n > 0 {
		telemetry.SetActiveViews(len(s.views))
	}
	return n
}
