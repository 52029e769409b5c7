package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/store"
)

type recordingNotifier struct {
	mu        sync.Mutex
	delivered []models.WSMessage
	online    bool
}

func (n *recordingNotifier) Notify(profileID uuid.UUID, msg models.WSMessage) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.delivered = append(n.delivered, msg)
	return n.online
}

func TestReminderDue(t *testing.T) {
	// 2026-02-16 is a Monday.
	now := time.Date(2026, 2, 16, 19, 30, 42, 0, time.Local)

	tests := []struct {
		name string
		r    models.Reminder
		want bool
	}{
		{"matching", models.Reminder{Time: "19:30", Days: []int{1}, Active: true}, true},
		{"inactive", models.Reminder{Time: "19:30", Days: []int{1}, Active: false}, false},
		{"other weekday", models.Reminder{Time: "19:30", Days: []int{0, 2}, Active: true}, false},
		{"other minute", models.Reminder{Time: "19:31", Days: []int{1}, Active: true}, false},
		{"no days", models.Reminder{Time: "19:30", Active: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reminderDue(tt.r, now); got != tt.want {
				t.Fatalf("reminderDue = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReminderSchedulerFiresOncePerMinute(t *testing.T) {
	ctx := context.Background()
	reg := store.NewRegistry(repository.NewMemoryKV(0), store.Options{})
	ws, err := reg.Get(ctx, uuid.New())
	if err != nil {
		t.Fatal(err)
	}
	_, err = ws.State.Mutate(func(st *models.AppState) error {
		st.Reminders = append(st.Reminders,
			models.Reminder{ID: "r1", Title: "Ôn Toán", Time: "19:30", Days: []int{1}, Active: true},
			models.Reminder{ID: "r2", Title: "Off", Time: "19:30", Days: []int{1}, Active: false},
		)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	n := &recordingNotifier{online: true}
	s := NewReminderScheduler(reg, n, time.Minute, nil)

	now := time.Date(2026, 2, 16, 19, 30, 5, 0, time.Local)
	if got := s.Check(ctx, now); got != 1 {
		t.Fatalf("expected 1 reminder to fire, got %d", got)
	}
	if got := s.Check(ctx, now.Add(20*time.Second)); got != 0 {
		t.Fatalf("expected no refire within the same minute, got %d", got)
	}
	if got := s.Check(ctx, now.Add(7*24*time.Hour)); got != 1 {
		t.Fatalf("expected reminder to fire again next week, got %d", got)
	}

	if len(n.delivered) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(n.delivered))
	}
	ev, ok := n.delivered[0].Payload.(models.ReminderEvent)
	if !ok || ev.ReminderID != "r1" || n.delivered[0].Type != "reminder" {
		t.Fatalf("unexpected message %+v", n.delivered[0])
	}
}

func TestReminderSchedulerWithoutConnectionStillCounts(t *testing.T) {
	ctx := context.Background()
	reg := store.NewRegistry(repository.NewMemoryKV(0), store.Options{})
	ws, _ := reg.Get(ctx, uuid.New())
	_, _ = ws.State.Mutate(func(st *models.AppState) error {
		st.Reminders = []models.Reminder{{ID: "r", Time: "07:00", Days: []int{0, 1, 2, 3, 4, 5, 6}, Active: true}}
		return nil
	})

	s := NewReminderScheduler(reg, &recordingNotifier{online: false}, 0, nil)
	if got := s.Check(ctx, time.Date(2026, 3, 1, 7, 0, 0, 0, time.Local)); got != 1 {
		t.Fatalf("expected fallback delivery to count, got %d", got)
	}
}

func TestReminderSchedulerStopIsIdempotent(t *testing.T) {
	reg := store.NewRegistry(repository.NewMemoryKV(0), store.Options{})
	s := NewReminderScheduler(reg, nil, time.Hour, nil)
	s.Start()
	s.Stop()
	s.Stop()
}
