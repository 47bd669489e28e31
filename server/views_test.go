package server

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/match-chat/backend/chat"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClockedStore(ttl time.Duration, max int) (*ViewStore, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	s := NewViewStore(ttl, max)
	s.now = clock.Now
	return s, clock
}

func TestViewStoreExpiresIdleViews(t *testing.T) {
	s, clock := newClockedStore(time.Minute, 10)
	id, err := s.Create(1, chat.NewEngine(testChat()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	clock.Advance(50 * time.Second)
	if err := s.With(id, func(int64, *chat.Engine) error { return nil }); err != nil {
		t.Fatalf("With before expiry: %v", err)
	}

	// Use above refreshed the deadline
	clock.Advance(50 * time.Second)
	if err := s.With(id, func(int64, *chat.Engine) error { return nil }); err != nil {
		t.Fatalf("With after refresh: %v", err)
	}

	clock.Advance(61 * time.Second)
	err = s.With(id, func(int64, *chat.Engine) error { return nil })
	if !errors.Is(err, ErrViewNotFound) {
		t.Fatalf("expected ErrViewNotFound, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expired view still stored")
	}
}

func TestViewStoreSweepFreesCapacity(t *testing.T) {
	s, clock := newClockedStore(time.Minute, 1)
	if _, err := s.Create(1, chat.NewEngine(nil)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := s.Create(2, chat.NewEngine(nil)); !errors.Is(err, ErrTooManyViews) {
		t.Fatalf("expected ErrTooManyViews, got %v", err)
	}
	clock.Advance(2 * time.Minute)
	if _, err := s.Create(2, chat.NewEngine(nil)); err != nil {
		t.Fatalf("Create after expiry: %v", err)
	}
	if n := s.Sweep(); n != 0 {
		t.Errorf("Sweep removed %d fresh views", n)
	}
}

func TestViewStoreWithPassesMatchAndError(t *testing.T) {
	s, _ := newClockedStore(time.Minute, 10)
	id, _ := s.Create(77, chat.NewEngine(testChat()))

	var gotMatch int64
	err := s.With(id, func(matchID int64, e *chat.Engine) error {
		gotMatch = matchID
		_, err := e.Toggle("nope")
		return err
	})
	if gotMatch != 77 {
		t.Errorf("matchID = %d, want 77", gotMatch)
	}
	if !errors.Is(err, chat.ErrInvalidFilterKind) {
		t.Errorf("expected ErrInvalidFilterKind, got %v", err)
	}
}

func TestViewStoreConcurrentToggles(t *testing.T) {
	s, _ := newClockedStore(time.Minute, 10)
	id, _ := s.Create(1, chat.NewEngine(testChat()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.With(id, func(_ int64, e *chat.Engine) error {
				_, err := e.Toggle(string(chat.FilterSpam))
				return err
			})
		}()
	}
	wg.Wait()

	// An even number of flips leaves spam hidden
	_ = s.With(id, func(_ int64, e *chat.Engine) error {
		if e.State().ShowSpam {
			t.Error("expected spam hidden after 20 toggles")
		}
		return nil
	})
}
