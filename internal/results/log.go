// Package results keeps the per-profile history of graded sessions.
package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"studyhub-backend/internal/apperr"
	"studyhub-backend/internal/logger"
	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
)

// Log is an append-only sequence of results persisted under a single key.
// Entries are stored oldest first and presented newest first. Every change
// rewrites the whole blob before returning.
type Log struct {
	kv  repository.KVStore
	key string
	log *logger.Logger

	mu       sync.Mutex
	entries  []models.ExamResult
	warnings []apperr.Warning
}

// Open loads the log stored at key. A blob that fails to decode is discarded
// and the log starts empty with a StorageCorrupt warning pending.
func Open(ctx context.Context, kv repository.KVStore, key string, log *logger.Logger) (*Log, error) {
	l := &Log{kv: kv, key: key, log: logger.OrNop(log)}

	raw, err := kv.Get(ctx, key)
	if errors.Is(err, apperr.ErrNotFound) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load result log: %w", err)
	}

	var entries []models.ExamResult
	if err := json.Unmarshal(raw, &entries); err != nil {
		l.log.Warn("discarding corrupt result log", "key", key, "error", err)
		if delErr := kv.Delete(ctx, key); delErr != nil {
			l.log.Error("failed to delete corrupt result log", "key", key, "error", delErr)
		}
		w, _ := apperr.WarningFor(fmt.Errorf("%w: %v", apperr.ErrStorageCorrupt, err))
		l.warnings = append(l.warnings, w)
		return l, nil
	}

	for _, r := range entries {
		if validate(r) != nil {
			l.log.Warn("dropping invalid stored result", "key", key, "result_id", r.ID)
			continue
		}
		l.entries = append(l.entries, r)
	}
	return l, nil
}

func validate(r models.ExamResult) error {
	if r.ID == "" {
		return fmt.Errorf("%w: result id is required", apperr.ErrInvalidArgument)
	}
	if r.Total < 0 || r.Score < 0 || r.Score > r.Total {
		return fmt.Errorf("%w: score %d out of range for %d questions", apperr.ErrInvalidArgument, r.Score, r.Total)
	}
	return nil
}

// Append adds r and persists the log. When persistence fails the result is
// still kept in memory and the storage error is returned.
func (l *Log) Append(ctx context.Context, r models.ExamResult) error {
	if err := validate(r); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, r)
	return l.persistLocked(ctx)
}

// All returns every result, newest first.
func (l *Log) All() []models.ExamResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := slices.Clone(l.entries)
	slices.Reverse(out)
	return out
}

// Recent returns at most n results, newest first.
func (l *Log) Recent(n int) []models.ExamResult {
	if n <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	start := max(0, len(l.entries)-n)
	out := slices.Clone(l.entries[start:])
	slices.Reverse(out)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear empties the log. Callers are responsible for confirming with the user.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	if err := l.kv.Delete(ctx, l.key); err != nil {
		return fmt.Errorf("failed to clear result log: %w", err)
	}
	return nil
}

// TakeWarnings returns and forgets the warnings raised while loading.
func (l *Log) TakeWarnings() []apperr.Warning {
	l.mu.Lock()
	defer l.mu.Unlock()
	w := l.warnings
	l.warnings = nil
	return w
}

func (l *Log) persistLocked(ctx context.Context) error {
	data, err := json.Marshal(l.entries)
	if err != nil {
		return fmt.Errorf("failed to encode result log: %w", err)
	}
	if err := l.kv.Put(ctx, l.key, data); err != nil {
		l.log.Warn("failed to persist result log", "key", l.key, "entries", len(l.entries), "error", err)
		return err
	}
	return nil
}
