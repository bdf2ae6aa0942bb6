package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// MySQLKV persists values in the kv_items table (see database.EnsureSchema).
type MySQLKV struct {
	DB  *sql.DB
	now func() time.Time
}

func NewMySQLKV(db *sql.DB) *MySQLKV { return &MySQLKV{DB: db, now: time.Now} }

func (r *MySQLKV) Name() string { return "mysql" }

// Set upserts key. A zero ttl stores a NULL expiry.
func (r *MySQLKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	var exp sql.NullTime
	if ttl > 0 {
		exp = sql.NullTime{Time: r.now().UTC().Add(ttl), Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO kv_items (k, v, expires_at) VALUES (?,?,?) ON DUPLICATE KEY UPDATE v=VALUES(v), expires_at=VALUES(expires_at)",
		key, value, exp)
	return err
}

// Get returns ErrNotFound for missing or expired rows.
func (r *MySQLKV) Get(ctx context.Context, key string) (string, error) {
	var (
		value string
		exp   sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT v, expires_at FROM kv_items WHERE k=? LIMIT 1", key).Scan(&value, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if exp.Valid && !r.now().UTC().Before(exp.Time) {
		return "", ErrNotFound
	}
	return value, nil
}

func (r *MySQLKV) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM kv_items WHERE k=?", key)
	return err
}
