package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/store"
)

const (
	DefaultReminderPollInterval = time.Minute
	reminderTimeLayout          = "15:04"
)

// Notifier delivers a message to a profile's live connections and reports
// whether anyone received it.
type Notifier interface {
	Notify(profileID uuid.UUID, msg models.WSMessage) bool
}

// WorkspaceLister exposes the workspaces currently held in memory.
type WorkspaceLister interface {
	Loaded() []*store.Workspace
}

type ReminderScheduler struct {
	workspaces WorkspaceLister
	notifier   Notifier
	log        *logger.Logger
	interval   time.Duration
	now        func() time.Time

	mu    sync.Mutex
	fired map[string]string // profile/reminder -> minute it last fired

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewReminderScheduler(workspaces WorkspaceLister, notifier Notifier, interval time.Duration, log *logger.Logger) *ReminderScheduler {
	if interval <= 0 {
		interval = DefaultReminderPollInterval
	}
	return &ReminderScheduler{
		workspaces: workspaces,
		notifier:   notifier,
		log:        logger.OrNop(log),
		interval:   interval,
		now:        time.Now,
		fired:      make(map[string]string),
		stopChan:   make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (s *ReminderScheduler) Start() {
	if s.workspaces == nil {
		close(s.done)
		return
	}
	go s.loop()
	s.log.Info("Reminder scheduler started", "interval", s.interval)
}

// Stop ends the poll loop and waits for it to exit.
func (s *ReminderScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *ReminderScheduler) loop() {
	defer close(s.done)

	s.Check(context.Background(), s.now())

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.Check(context.Background(), s.now())
		}
	}
}

// Check fires every active reminder due at now's minute across the loaded
// workspaces and returns how many fired.
func (s *ReminderScheduler) Check(ctx context.Context, now time.Time) int {
	minute := now.Format("2006-01-02T15:04")
	count := 0
	for _, ws := range s.workspaces.Loaded() {
		if ctx.Err() != nil {
			return count
		}
		for _, r := range ws.State.Snapshot().Reminders {
			if !reminderDue(r, now) {
				continue
			}
			if !s.markFired(ws.ProfileID, r.ID, minute) {
				continue
			}
			s.fire(ws.ProfileID, r)
			count++
		}
	}
	return count
}

func (s *ReminderScheduler) markFired(profileID uuid.UUID, reminderID, minute string) bool {
	key := profileID.String() + "/" + reminderID
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fired[key] == minute {
		return false
	}
	s.fired[key] = minute
	return true
}

func (s *ReminderScheduler) fire(profileID uuid.UUID, r models.Reminder) {
	msg := models.WSMessage{
		Type:    "reminder",
		Payload: models.ReminderEvent{ReminderID: r.ID, Title: r.Title, Time: r.Time},
	}
	if s.notifier != nil && s.notifier.Notify(profileID, msg) {
		s.log.Debug("reminder delivered", "profile_id", profileID, "reminder_id", r.ID)
		return
	}
	s.log.Info("reminder due (no live connection)", "profile_id", profileID, "reminder_id", r.ID, "title", r.Title, "time", r.Time)
}

func reminderDue(r models.Reminder, now time.Time) bool {
	if !r.Active || r.Time != now.Format(reminderTimeLayout) {
		return false
	}
	weekday := int(now.Weekday())
	for _, d := range r.Days {
		if d == weekday {
			return true
		}
	}
	return false
}
