package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/store"
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

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestApplyStudyDay(t *testing.T) {
	day := time.Date(2026, 5, 10, 8, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		in   models.StudyStats
		want int
	}{
		{"first ever", models.StudyStats{}, 1},
		{"same day", models.StudyStats{StreakDays: 4, LastLoginDate: "2026-05-10"}, 4},
		{"next day", models.StudyStats{StreakDays: 4, LastLoginDate: "2026-05-09"}, 5},
		{"gap", models.StudyStats{StreakDays: 4, LastLoginDate: "2026-05-07"}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyStudyDay(tt.in, day)
			if got.StreakDays != tt.want {
				t.Fatalf("streak = %d, want %d", got.StreakDays, tt.want)
			}
			if got.LastLoginDate != "2026-05-10" {
				t.Fatalf("last login = %q", got.LastLoginDate)
			}
		})
	}
}

func newTracker(t *testing.T, clock *fakeClock) (*StudyTracker, *store.Registry) {
	t.Helper()
	reg := store.NewRegistry(repository.NewMemoryKV(0), store.Options{})
	tr := NewStudyTracker(reg, StudyTrackerOptions{
		Tick:             5 * time.Millisecond,
		HeartbeatTimeout: 3 * time.Minute,
		Now:              clock.Now,
	})
	t.Cleanup(tr.Close)
	return tr, reg
}

func TestStudyTrackerCreditsMinutesUntilStopped(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 10, 8, 0, 0, 0, time.Local)}
	tr, reg := newTracker(t, clock)
	profile := uuid.New()

	sess, err := tr.Start(ctx, profile)
	if err != nil {
		t.Fatal(err)
	}
	ws, _ := reg.Get(ctx, profile)
	if ws.State.Snapshot().StudyStats.StreakDays != 1 {
		t.Fatal("expected streak to start at 1")
	}

	waitUntil(t, "two credited minutes", func() bool {
		return ws.State.Snapshot().StudyStats.TotalStudyMinutes >= 2
	})

	final, err := tr.Stop(profile, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if final.EndedAt == nil {
		t.Fatal("expected EndedAt to be set")
	}
	after := ws.State.Snapshot().StudyStats.TotalStudyMinutes
	time.Sleep(30 * time.Millisecond)
	if got := ws.State.Snapshot().StudyStats.TotalStudyMinutes; got != after {
		t.Fatalf("minutes kept growing after stop: %d -> %d", after, got)
	}
	if _, err := tr.Heartbeat(profile, sess.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after stop, got %v", err)
	}
}

func TestStudyTrackerHeartbeatTimeout(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 5, 10, 8, 0, 0, 0, time.Local)}
	tr, _ := newTracker(t, clock)
	profile := uuid.New()

	sess, err := tr.Start(context.Background(), profile)
	if err != nil {
		t.Fatal(err)
	}

	clock.Advance(2 * time.Minute)
	if _, err := tr.Heartbeat(profile, sess.ID); err != nil {
		t.Fatalf("heartbeat within timeout failed: %v", err)
	}

	clock.Advance(3 * time.Minute)
	waitUntil(t, "session to time out", func() bool { return tr.Active() == 0 })

	if _, err := tr.Stop(profile, sess.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for timed out session, got %v", err)
	}
}

func TestStudyTrackerReplacesLiveSession(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2026, 5, 10, 8, 0, 0, 0, time.Local)}
	tr, _ := newTracker(t, clock)
	profile := uuid.New()

	first, _ := tr.Start(ctx, profile)
	second, _ := tr.Start(ctx, profile)
	if tr.Active() != 1 {
		t.Fatalf("expected one live session, got %d", tr.Active())
	}
	if _, err := tr.Heartbeat(profile, first.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected replaced session to be gone, got %v", err)
	}
	if _, err := tr.Heartbeat(profile, second.ID); err != nil {
		t.Fatal(err)
	}
}

func TestStudyTrackerCloseRejectsNewSessions(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	tr, _ := newTracker(t, clock)
	_, _ = tr.Start(context.Background(), uuid.New())
	tr.Close()
	if tr.Active() != 0 {
		t.Fatal("expected no live sessions after close")
	}
	if _, err := tr.Start(context.Background(), uuid.New()); !errors.Is(err, apperr.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable after close, got %v", err)
	}
}
