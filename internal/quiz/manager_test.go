package quiz

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
)

func TestManagerScopesSessionsByProfile(t *testing.T) {
	m := NewManager(ManagerOptions{})
	defer m.Close()

	alice, bob := uuid.New(), uuid.New()
	s, err := m.Create(alice, Config{Kind: KindQuiz})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(alice, s.ID()); err != nil {
		t.Fatalf("get own session: %v", err)
	}
	if _, err := m.Get(bob, s.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found for other profile, got %v", err)
	}
}

func TestManagerDropsIdleSessionsOnCreate(t *testing.T) {
	m := NewManager(ManagerOptions{})
	defer m.Close()
	p := uuid.New()

	running, _ := m.Create(p, Config{})
	if err := running.Generate(context.Background(), Fixed(mcQuestions(1))); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "in-progress", func() bool { return running.Status() == StatusInProgress })

	idle, _ := m.Create(p, Config{})
	if _, err := m.Create(p, Config{}); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Get(p, idle.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("idle session should be dropped, got %v", err)
	}
	if _, err := m.Get(p, running.ID()); err != nil {
		t.Fatalf("running session must survive: %v", err)
	}
	if m.Count(p) != 2 {
		t.Fatalf("expected 2 live sessions, got %d", m.Count(p))
	}
}

func TestManagerForwardsEventsWithProfile(t *testing.T) {
	p := uuid.New()
	got := make(chan uuid.UUID, 8)
	m := NewManager(ManagerOptions{OnEvent: func(profileID uuid.UUID, ev Event) { got <- profileID }})
	defer m.Close()

	s, _ := m.Create(p, Config{})
	_ = s.Generate(context.Background(), Fixed(mcQuestions(1)))
	if id := <-got; id != p {
		t.Fatalf("expected profile %s, got %s", p, id)
	}
}

func TestManagerCloseRejectsNewSessions(t *testing.T) {
	m := NewManager(ManagerOptions{})
	m.Close()
	if _, err := m.Create(uuid.New(), Config{}); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

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
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func startManaged(t *testing.T, m *Manager, p uuid.UUID, cfg Config) *Session {
	t.Helper()
	s, err := m.Create(p, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Generate(context.Background(), Fixed(mcQuestions(1))); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "in-progress", func() bool { return s.Status() == StatusInProgress })
	return s
}

func TestManagerDropsStaleUntimedSessions(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	m := NewManager(ManagerOptions{IdleTimeout: time.Hour, Now: clock.Now})
	defer m.Close()
	p := uuid.New()

	stale := startManaged(t, m, p, Config{})
	exam := startManaged(t, m, p, Config{TimeLimit: 24 * time.Hour})
	clock.Advance(2 * time.Hour)

	if _, err := m.Create(p, Config{}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get(p, stale.ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("stale untimed session should be dropped, got %v", err)
	}
	if _, err := m.Get(p, exam.ID()); err != nil {
		t.Fatalf("timed exam must survive: %v", err)
	}
	if err := stale.Answer("q1", "B1"); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("dropped session should reject answers, got %v", err)
	}
}

func TestManagerCapsLiveSessionsPerProfile(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	m := NewManager(ManagerOptions{MaxSessions: 3, Now: clock.Now})
	defer m.Close()
	p := uuid.New()

	var sessions []*Session
	for range 3 {
		sessions = append(sessions, startManaged(t, m, p, Config{}))
		clock.Advance(time.Minute)
	}
	// Answering the oldest makes the second one the least recently used.
	if err := sessions[0].Answer("q1", "A1"); err != nil {
		t.Fatal(err)
	}

	if _, err := m.Create(p, Config{}); err != nil {
		t.Fatal(err)
	}
	if m.Count(p) != 3 {
		t.Fatalf("expected the cap of 3 live sessions, got %d", m.Count(p))
	}
	if _, err := m.Get(p, sessions[1].ID()); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("least recently answered session should be evicted, got %v", err)
	}
	for _, s := range []*Session{sessions[0], sessions[2]} {
		if _, err := m.Get(p, s.ID()); err != nil {
			t.Fatalf("session %s should survive: %v", s.ID(), err)
		}
	}
}
