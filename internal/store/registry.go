package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/results"
)

// Workspace bundles everything persisted for one profile: the application
// state document, the result log, the cached roadmap and drafts.
type Workspace struct {
	ProfileID uuid.UUID
	State     *Store
	Results   *results.Log

	kv  repository.KVStore
	log *logger.Logger

	mu       sync.Mutex
	warnings []apperr.Warning
}

// Warnings drains storage warnings raised by any part of the workspace.
func (w *Workspace) Warnings() []apperr.Warning {
	w.mu.Lock()
	out := w.warnings
	w.warnings = nil
	w.mu.Unlock()
	out = append(out, w.State.TakeWarnings()...)
	out = append(out, w.Results.TakeWarnings()...)
	return out
}

func (w *Workspace) warn(err error) {
	if wn, ok := apperr.WarningFor(err); ok {
		w.mu.Lock()
		w.warnings = append(w.warnings, wn)
		w.mu.Unlock()
	}
}

// Roadmap returns the cached study roadmap, or nil when none is stored.
func (w *Workspace) Roadmap(ctx context.Context) (*models.StudyRoadmap, error) {
	key := repository.RoadmapKey(w.ProfileID)
	raw, err := w.kv.Get(ctx, key)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rm models.StudyRoadmap
	if err := json.Unmarshal(raw, &rm); err != nil {
		w.log.Warn("discarding corrupt roadmap cache", "key", key, "error", err)
		_ = w.kv.Delete(ctx, key)
		w.warn(fmt.Errorf("%w: %v", apperr.ErrStorageCorrupt, err))
		return nil, nil
	}
	return &rm, nil
}

// SaveRoadmap replaces the cached roadmap. A quota failure is kept as a
// warning and not returned.
func (w *Workspace) SaveRoadmap(ctx context.Context, rm models.StudyRoadmap) error {
	data, err := json.Marshal(rm)
	if err != nil {
		return err
	}
	return w.put(ctx, repository.RoadmapKey(w.ProfileID), data)
}

// Draft returns the raw draft stored under name, or nil when there is none.
func (w *Workspace) Draft(ctx context.Context, name string) (json.RawMessage, error) {
	key, err := repository.DraftKey(w.ProfileID, name)
	if err != nil {
		return nil, err
	}
	raw, err := w.kv.Get(ctx, key)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		w.log.Warn("discarding corrupt draft", "key", key)
		_ = w.kv.Delete(ctx, key)
		w.warn(apperr.ErrStorageCorrupt)
		return nil, nil
	}
	return raw, nil
}

func (w *Workspace) SaveDraft(ctx context.Context, name string, raw json.RawMessage) error {
	key, err := repository.DraftKey(w.ProfileID, name)
	if err != nil {
		return err
	}
	if !json.Valid(raw) {
		return fmt.Errorf("%w: draft must be valid JSON", apperr.ErrInvalidArgument)
	}
	return w.put(ctx, key, raw)
}

func (w *Workspace) DeleteDraft(ctx context.Context, name string) error {
	key, err := repository.DraftKey(w.ProfileID, name)
	if err != nil {
		return err
	}
	return w.kv.Delete(ctx, key)
}

func (w *Workspace) put(ctx context.Context, key string, data []byte) error {
	err := w.kv.Put(ctx, key, data)
	if err == nil {
		return nil
	}
	if errors.Is(err, apperr.ErrStorageQuotaExceeded) {
		w.log.Error("storage quota exceeded", "key", key, "bytes", len(data), "error", err)
		w.warn(err)
		return nil
	}
	return err
}

// Registry loads workspaces on first use and keeps them for the process lifetime.
type Registry struct {
	kv   repository.KVStore
	opts Options

	group singleflight.Group

	mu         sync.RWMutex
	workspaces map[uuid.UUID]*Workspace
	closed     bool
}

func NewRegistry(kv repository.KVStore, opts Options) *Registry {
	opts.Log = logger.OrNop(opts.Log)
	return &Registry{
		kv:         kv,
		opts:       opts,
		workspaces: make(map[uuid.UUID]*Workspace),
	}
}

// Get returns the workspace for profileID, loading it if needed. Concurrent
// first requests for the same profile share one load.
func (r *Registry) Get(ctx context.Context, profileID uuid.UUID) (*Workspace, error) {
	r.mu.RLock()
	ws, ok := r.workspaces[profileID]
	closed := r.closed
	r.mu.RUnlock()
	if ok {
		return ws, nil
	}
	if closed {
		return nil, fmt.Errorf("%w: registry closed", apperr.ErrUnavailable)
	}

	v, err, _ := r.group.Do(profileID.String(), func() (interface{}, error) {
		r.mu.RLock()
		ws, ok := r.workspaces[profileID]
		r.mu.RUnlock()
		if ok {
			return ws, nil
		}

		ws, err := r.load(context.WithoutCancel(ctx), profileID)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			return nil, fmt.Errorf("%w: registry closed", apperr.ErrUnavailable)
		}
		r.workspaces[profileID] = ws
		return ws, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Workspace), nil
}

func (r *Registry) load(ctx context.Context, profileID uuid.UUID) (*Workspace, error) {
	st, err := Open(ctx, r.kv, repository.StateKey(profileID), r.opts)
	if err != nil {
		return nil, err
	}
	log, err := results.Open(ctx, r.kv, repository.ResultsKey(profileID), r.opts.Log)
	if err != nil {
		return nil, err
	}
	r.opts.Log.Debug("loaded workspace", "profile_id", profileID)
	return &Workspace{
		ProfileID: profileID,
		State:     st,
		Results:   log,
		kv:        r.kv,
		log:       r.opts.Log,
	}, nil
}

// Loaded returns the workspaces currently held in memory.
func (r *Registry) Loaded() []*Workspace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		out = append(out, ws)
	}
	slices.SortFunc(out, func(a, b *Workspace) int { return bytes.Compare(a.ProfileID[:], b.ProfileID[:]) })
	return out
}

// Close flushes every loaded workspace. It returns the first error seen.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	all := make([]*Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		all = append(all, ws)
	}
	r.mu.Unlock()

	var first error
	for _, ws := range all {
		if err := ws.State.Close(ctx); err != nil && first == nil {
			first = err
		}
	}
	r.opts.Log.Info("flushed workspaces", "count", len(all))
	return first
}
