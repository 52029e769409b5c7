package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"studyhub-backend/internal/apperr"
)

const sqliteFull = 13 // SQLITE_FULL

// SQLiteKV stores blobs in a single-node sqlite database opened by
// database.OpenSQLite.
type SQLiteKV struct {
	db       *sql.DB
	maxValue int
}

func NewSQLiteKV(db *sql.DB, maxValueBytes int) *SQLiteKV {
	return &SQLiteKV{db: db, maxValue: maxValueBytes}
}

func (r *SQLiteKV) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := r.db.QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, nil
}

func (r *SQLiteKV) Put(ctx context.Context, key string, value []byte) error {
	if err := checkSize(key, value, r.maxValue); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		if isSQLiteFull(err) {
			return fmt.Errorf("%w: %v", apperr.ErrStorageQuotaExceeded, err)
		}
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteKV) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM kv_store WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func isSQLiteFull(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == sqliteFull
	}
	return false
}
