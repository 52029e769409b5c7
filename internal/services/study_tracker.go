package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/store"
)

const (
	DefaultStudyTick        = time.Minute
	DefaultHeartbeatTimeout = 3 * time.Minute
	studyDateLayout         = "2006-01-02"
)

// WorkspaceGetter loads a profile's workspace.
type WorkspaceGetter interface {
	Get(ctx context.Context, profileID uuid.UUID) (*store.Workspace, error)
}

type StudyTrackerOptions struct {
	Tick             time.Duration
	HeartbeatTimeout time.Duration
	Log              *logger.Logger
	Now              func() time.Time
}

// StudyTracker credits study minutes to a profile while a study session is
// kept alive by heartbeats. A profile has at most one live session.
type StudyTracker struct {
	workspaces WorkspaceGetter
	tick       time.Duration
	timeout    time.Duration
	log        *logger.Logger
	now        func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*trackedSession // by profile
	closed   bool
	wg       sync.WaitGroup
}

type trackedSession struct {
	models.StudySession
	ws     *store.Workspace
	cancel context.CancelFunc
}

func NewStudyTracker(workspaces WorkspaceGetter, opts StudyTrackerOptions) *StudyTracker {
	if opts.Tick <= 0 {
		opts.Tick = DefaultStudyTick
	}
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = DefaultHeartbeatTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &StudyTracker{
		workspaces: workspaces,
		tick:       opts.Tick,
		timeout:    opts.HeartbeatTimeout,
		log:        logger.OrNop(opts.Log),
		now:        opts.Now,
		sessions:   make(map[uuid.UUID]*trackedSession),
	}
}

// ApplyStudyDay updates the streak for a study day. Same day leaves it
// unchanged, the following day extends it, any gap restarts it at 1.
func ApplyStudyDay(stats models.StudyStats, day time.Time) models.StudyStats {
	today := day.Format(studyDateLayout)
	if stats.LastLoginDate == today {
		return stats
	}
	yesterday := day.AddDate(0, 0, -1).Format(studyDateLayout)
	if stats.LastLoginDate == yesterday && stats.StreakDays > 0 {
		stats.StreakDays++
	} else {
		stats.StreakDays = 1
	}
	stats.LastLoginDate = today
	return stats
}

// Start opens a study session for the profile, replacing any live one, and
// updates the streak.
func (t *StudyTracker) Start(ctx context.Context, profileID uuid.UUID) (models.StudySession, error) {
	ws, err := t.workspaces.Get(ctx, profileID)
	if err != nil {
		return models.StudySession{}, err
	}

	now := t.now()
	if _, err := ws.State.Mutate(func(st *models.AppState) error {
		st.StudyStats = ApplyStudyDay(st.StudyStats, now)
		return nil
	}); err != nil {
		return models.StudySession{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return models.StudySession{}, fmt.Errorf("%w: study tracker stopped", apperr.ErrUnavailable)
	}
	if prev, ok := t.sessions[profileID]; ok {
		prev.cancel()
		t.log.Debug("replaced study session", "profile_id", profileID, "session_id", prev.ID)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &trackedSession{
		StudySession: models.StudySession{
			ID:              uuid.New(),
			ProfileID:       profileID,
			StartedAt:       now,
			LastHeartbeatAt: now,
		},
		ws:     ws,
		cancel: cancel,
	}
	t.sessions[profileID] = s

	t.wg.Add(1)
	go t.run(runCtx, s)

	t.log.Info("study session started", "profile_id", profileID, "session_id", s.ID)
	return s.StudySession, nil
}

// Heartbeat keeps the session alive.
func (t *StudyTracker) Heartbeat(profileID, sessionID uuid.UUID) (models.StudySession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookupLocked(profileID, sessionID)
	if err != nil {
		return models.StudySession{}, err
	}
	s.LastHeartbeatAt = t.now()
	return s.StudySession, nil
}

// Stop ends the session and returns its final accounting.
func (t *StudyTracker) Stop(profileID, sessionID uuid.UUID) (models.StudySession, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.lookupLocked(profileID, sessionID)
	if err != nil {
		return models.StudySession{}, err
	}
	t.endLocked(s)
	return s.StudySession, nil
}

func (t *StudyTracker) lookupLocked(profileID, sessionID uuid.UUID) (*trackedSession, error) {
	s, ok := t.sessions[profileID]
	if !ok || s.ID != sessionID {
		return nil, fmt.Errorf("%w: study session %s", apperr.ErrNotFound, sessionID)
	}
	return s, nil
}

func (t *StudyTracker) endLocked(s *trackedSession) {
	s.cancel()
	ended := t.now()
	s.EndedAt = &ended
	if cur, ok := t.sessions[s.ProfileID]; ok && cur == s {
		delete(t.sessions, s.ProfileID)
	}
}

// Active reports the number of live sessions.
func (t *StudyTracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Close cancels every ticker and waits for them to exit.
func (t *StudyTracker) Close() {
	t.mu.Lock()
	t.closed = true
	for _, s := range t.sessions {
		t.endLocked(s)
	}
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *StudyTracker) run(ctx context.Context, s *trackedSession) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !t.credit(ctx, s) {
				return
			}
		}
	}
}

// credit adds one minute for a live session. It returns false once the
// session has ended or its heartbeat has lapsed.
func (t *StudyTracker) credit(ctx context.Context, s *trackedSession) bool {
	t.mu.Lock()
	if ctx.Err() != nil {
		t.mu.Unlock()
		return false
	}
	if t.now().Sub(s.LastHeartbeatAt) >= t.timeout {
		t.endLocked(s)
		t.mu.Unlock()
		t.log.Info("study session timed out", "profile_id", s.ProfileID, "session_id", s.ID, "minutes", s.MinutesCounted)
		return false
	}
	t.mu.Unlock()

	if _, err := s.ws.State.Mutate(func(st *models.AppState) error {
		st.StudyStats.TotalStudyMinutes++
		return nil
	}); err != nil {
		t.log.Warn("failed to credit study minute", "profile_id", s.ProfileID, "error", err)
		return false
	}

	t.mu.Lock()
	s.MinutesCounted++
	t.mu.Unlock()
	return true
}
