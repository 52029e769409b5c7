// Package repository persists serialized application blobs in a key-value
// backend. Every write replaces the previous value for its key whole.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"studyhub-backend/internal/apperr"
)

// KVStore is the narrow persistence contract the stores are written against.
// Get returns an error wrapping apperr.ErrNotFound for a missing key. Put
// returns an error wrapping apperr.ErrStorageQuotaExceeded when the backend
// refuses the write for lack of space.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "studyhub"

func StateKey(profileID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:state", keyPrefix, profileID)
}

func ResultsKey(profileID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:results", keyPrefix, profileID)
}

func RoadmapKey(profileID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:roadmap", keyPrefix, profileID)
}

// DraftKey validates name and returns the key holding that draft.
func DraftKey(profileID uuid.UUID, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 64 || strings.ContainsAny(name, ": /\\") {
		return "", fmt.Errorf("%w: invalid draft name %q", apperr.ErrInvalidArgument, name)
	}
	return fmt.Sprintf("%s:%s:draft:%s", keyPrefix, profileID, name), nil
}

func notFound(key string) error {
	return fmt.Errorf("%w: key %s", apperr.ErrNotFound, key)
}

// checkSize enforces the per-value limit that stands in for a browser's
// local-storage quota. A limit of zero disables the check.
func checkSize(key string, value []byte, limit int) error {
	if limit > 0 && len(value) > limit {
		return fmt.Errorf("%w: %s is %d bytes, limit %d", apperr.ErrStorageQuotaExceeded, key, len(value), limit)
	}
	return nil
}

// RefreshKey is global: a refresh token maps back to its profile.
func RefreshKey(token string) string {
	return fmt.Sprintf("%s:refresh:%s", keyPrefix, token)
}
