// Package store holds each profile's application state in memory and writes
// it back to the key-value backend on a debounced schedule.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
)

const DefaultDebounce = 500 * time.Millisecond

type Options struct {
	// Debounce bounds how often the document is rewritten. Zero writes on
	// every mutation.
	Debounce time.Duration
	Log      *logger.Logger
}

// Store is an explicit state container. Mutations run under a lock, notify
// observers with a snapshot and schedule one write of the whole document.
type Store struct {
	kv       repository.KVStore
	key      string
	debounce time.Duration
	log      *logger.Logger

	mu       sync.Mutex
	state    models.AppState
	dirty    bool
	timer    *time.Timer
	closed   bool
	warnings []apperr.Warning

	// persistMu orders writes so an older snapshot never lands after a newer one.
	persistMu sync.Mutex

	subsMu  sync.Mutex
	subs    map[int]func(models.AppState)
	nextSub int
}

// Open loads the document at key. A document that fails to decode is deleted,
// replaced by the default state, and reported as a StorageCorrupt warning.
func Open(ctx context.Context, kv repository.KVStore, key string, opts Options) (*Store, error) {
	s := &Store{
		kv:       kv,
		key:      key,
		debounce: opts.Debounce,
		log:      logger.OrNop(opts.Log),
		state:    DefaultState(),
		subs:     make(map[int]func(models.AppState)),
	}

	raw, err := kv.Get(ctx, key)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	var loaded models.AppState
	if err := json.Unmarshal(raw, &loaded); err != nil {
		s.log.Warn("failed to load data, resetting", "key", key, "error", err)
		if delErr := kv.Delete(ctx, key); delErr != nil {
			s.log.Error("failed to delete corrupt state", "key", key, "error", delErr)
		}
		w, _ := apperr.WarningFor(fmt.Errorf("%w: %v", apperr.ErrStorageCorrupt, err))
		s.warnings = append(s.warnings, w)
		return s, nil
	}
	s.state = Sanitize(loaded)
	return s, nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() models.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Clone(s.state)
}

// Mutate applies fn to a working copy. If fn fails the state is left as it
// was. On success the copy becomes the state and a write is scheduled.
// Storage failures never fail a mutation; they surface through TakeWarnings.
func (s *Store) Mutate(fn func(st *models.AppState) error) (models.AppState, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.AppState{}, fmt.Errorf("%w: store closed", apperr.ErrUnavailable)
	}
	working := Clone(s.state)
	if err := fn(&working); err != nil {
		s.mu.Unlock()
		return models.AppState{}, err
	}
	s.state = working
	s.dirty = true
	writeNow := s.debounce <= 0
	if !writeNow && s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flushFromTimer)
	}
	snap := Clone(s.state)
	s.mu.Unlock()

	s.notify(snap)

	if writeNow {
		// Failures are logged and kept as warnings by Flush.
		_ = s.Flush(context.Background())
	}
	return snap, nil
}

// Subscribe registers fn to receive a snapshot after every mutation.
func (s *Store) Subscribe(fn func(models.AppState)) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(snap models.AppState) {
	s.subsMu.Lock()
	fns := make([]func(models.AppState), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) flushFromTimer() {
	if err := s.Flush(context.Background()); err != nil {
		s.log.Debug("debounced flush failed", "key", s.key, "error", err)
	}
}

// Flush writes the document now if it changed since the last write. Quota
// failures are recorded as warnings; the in-memory state stays valid.
func (s *Store) Flush(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	data, err := json.Marshal(s.state)
	s.dirty = false
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	if err := s.kv.Put(ctx, s.key, data); err != nil {
		s.mu.Lock()
		if w, ok := apperr.WarningFor(err); ok {
			s.warnings = append(s.warnings, w)
			s.log.Error("storage quota exceeded, latest change may not survive a reload", "key", s.key, "bytes", len(data), "error", err)
		} else {
			// Transient failure: keep the document dirty so Close retries.
			s.dirty = true
			s.log.Error("failed to persist state", "key", s.key, "error", err)
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// TakeWarnings returns and forgets pending storage warnings.
func (s *Store) TakeWarnings() []apperr.Warning {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.warnings
	s.warnings = nil
	return w
}

// Close stops the debounce timer and writes any pending change.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.Flush(ctx)
}
