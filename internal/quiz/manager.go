package quiz

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/logger"
)

// Defaults for ManagerOptions.
const (
	DefaultMaxSessions = 5
	DefaultIdleTimeout = 6 * time.Hour
)

type ManagerOptions struct {
	Runner Runner
	Log    *logger.Logger
	Tick   time.Duration
	// MaxSessions bounds the live sessions kept per profile. Untimed
	// in-progress sessions are evicted, least recently answered first, to
	// make room for a new one.
	MaxSessions int
	// IdleTimeout drops untimed in-progress sessions nobody answered for
	// that long.
	IdleTimeout time.Duration
	Now         func() time.Time
	// OnEvent receives every session event together with the owning profile.
	OnEvent func(profileID uuid.UUID, ev Event)
}

// Manager owns the live sessions of every profile.
type Manager struct {
	opts ManagerOptions
	log  *logger.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]map[uuid.UUID]*Session
	closed   bool
}

func NewManager(opts ManagerOptions) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		opts:     opts,
		log:      logger.OrNop(opts.Log),
		sessions: make(map[uuid.UUID]map[uuid.UUID]*Session),
	}
}

// Create opens a new session for profileID. Sessions of the same profile that
// are idle (setup or graded) are closed and dropped. Timed exams are never
// discarded implicitly; untimed quizzes left in progress are dropped once
// stale or when the profile is over MaxSessions.
func (m *Manager) Create(profileID uuid.UUID, cfg Config) (*Session, error) {
	if cfg.Runner == nil {
		cfg.Runner = m.opts.Runner
	}
	if cfg.Log == nil {
		cfg.Log = m.log
	}
	if cfg.Tick == 0 {
		cfg.Tick = m.opts.Tick
	}
	if cfg.Now == nil {
		cfg.Now = m.opts.Now
	}
	if cfg.OnEvent == nil && m.opts.OnEvent != nil {
		cfg.OnEvent = func(ev Event) { m.opts.OnEvent(profileID, ev) }
	}
	s := NewSession(cfg)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("%w: session manager is shut down", apperr.ErrUnavailable)
	}
	owned := m.sessions[profileID]
	if owned == nil {
		owned = make(map[uuid.UUID]*Session)
		m.sessions[profileID] = owned
	}
	for id, old := range owned {
		if st := old.Status(); st == StatusSetup || st == StatusGraded {
			old.Close()
			delete(owned, id)
		}
	}
	m.evictUntimedLocked(profileID, owned)
	owned[s.ID()] = s
	return s, nil
}

// evictUntimedLocked drops stale untimed sessions, then the least recently
// answered ones until there is room for one more.
func (m *Manager) evictUntimedLocked(profileID uuid.UUID, owned map[uuid.UUID]*Session) {
	type candidate struct {
		id    uuid.UUID
		since time.Time
	}
	var untimed []candidate
	cutoff := m.opts.Now().Add(-m.opts.IdleTimeout)
	for id, sess := range owned {
		since, ok := sess.untimedSince()
		if !ok {
			continue
		}
		if since.Before(cutoff) {
			m.dropLocked(profileID, owned, id, "stale")
			continue
		}
		untimed = append(untimed, candidate{id: id, since: since})
	}
	slices.SortFunc(untimed, func(a, b candidate) int { return a.since.Compare(b.since) })
	for _, c := range untimed {
		if len(owned) < m.opts.MaxSessions {
			return
		}
		m.dropLocked(profileID, owned, c.id, "over limit")
	}
}

func (m *Manager) dropLocked(profileID uuid.UUID, owned map[uuid.UUID]*Session, id uuid.UUID, reason string) {
	owned[id].Close()
	delete(owned, id)
	m.log.Info("evicted quiz session", "profile_id", profileID, "session_id", id, "reason", reason)
}

func (m *Manager) Get(profileID, sessionID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[profileID][sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: session %s", apperr.ErrNotFound, sessionID)
	}
	return s, nil
}

// Remove closes and forgets a session.
func (m *Manager) Remove(profileID, sessionID uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[profileID][sessionID]
	if ok {
		delete(m.sessions[profileID], sessionID)
	}
	m.mu.Unlock()
	if ok {
		s.Close()
	}
}

// Count returns the number of live sessions for profileID.
func (m *Manager) Count(profileID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions[profileID])
}

// Close stops every countdown and pending generation.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[uuid.UUID]map[uuid.UUID]*Session)
	m.closed = true
	m.mu.Unlock()

	n := 0
	for _, owned := range all {
		for _, s := range owned {
			s.Close()
			n++
		}
	}
	m.log.Info("closed quiz sessions", "count", n)
}
