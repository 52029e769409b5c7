package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"studyhub-backend/internal/apperr"
)

// PostgresKV stores blobs in the kv_store table created by migrations.
type PostgresKV struct {
	pool     *pgxpool.Pool
	maxValue int
}

func NewPostgresKV(pool *pgxpool.Pool, maxValueBytes int) *PostgresKV {
	return &PostgresKV{pool: pool, maxValue: maxValueBytes}
}

func (r *PostgresKV) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := r.pool.QueryRow(ctx, "SELECT value FROM kv_store WHERE key = $1", key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return v, nil
}

func (r *PostgresKV) Put(ctx context.Context, key string, value []byte) error {
	if err := checkSize(key, value, r.maxValue); err != nil {
		return err
	}
	query := `INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`
	if _, err := r.pool.Exec(ctx, query, key, value); err != nil {
		if isPgQuotaError(err) {
			return fmt.Errorf("%w: %v", apperr.ErrStorageQuotaExceeded, err)
		}
		return fmt.Errorf("failed to put %s: %w", key, err)
	}
	return nil
}

func (r *PostgresKV) Delete(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM kv_store WHERE key = $1", key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func isPgQuotaError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "53100", // disk_full
		"53200", // out_of_memory
		"54000": // program_limit_exceeded
		return true
	}
	return false
}
