package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotlink/internal/session"
)

// SessionRepository implements [session.Backend] on the session_values table.
type SessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ session.Backend = (*SessionRepository)(nil)

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db, now: time.Now}
}

func (r *SessionRepository) expiry(ttl time.Duration) sql.NullInt64 {
	if ttl <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: r.now().Add(ttl).UnixMilli(), Valid: true}
}

func (r *SessionRepository) live(expiresAt sql.NullInt64) bool {
	return !expiresAt.Valid || r.now().UnixMilli() < expiresAt.Int64
}

// Get returns the live value stored under key, if any.
func (r *SessionRepository) Get(ctx context.Context, sid, key string) (string, bool, error) {
	query := `
		SELECT value, expires_at
		FROM session_values
		WHERE session_id = ? AND key = ?
	`

	var (
		value     string
		expiresAt sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, query, sid, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query session value: %w", err)
	}

	if !r.live(expiresAt) {
		return "", false, nil
	}
	return value, true, nil
}

// Set upserts value. A zero ttl keeps it until deleted.
func (r *SessionRepository) Set(ctx context.Context, sid, key, value string, ttl time.Duration) error {
	query := `
		INSERT INTO session_values (session_id, key, value, expires_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (session_id, key) DO UPDATE
		SET value = excluded.value, expires_at = excluded.expires_at, updated_at = excluded.updated_at
	`

	if _, err := r.db.ExecContext(ctx, query, sid, key, value, r.expiry(ttl), r.now().UTC()); err != nil {
		return fmt.Errorf("failed to upsert session value: %w", err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SessionRepository) Delete(ctx context.Context, sid, key string) error {
	query := `DELETE FROM session_values WHERE session_id = ? AND key = ?`

	if _, err := r.db.ExecContext(ctx, query, sid, key); err != nil {
		return fmt.Errorf("failed to delete session value: %w", err)
	}
	return nil
}

// Take deletes key and returns what it held in a single statement, so only one caller can observe it.
func (r *SessionRepository) Take(ctx context.Context, sid, key string) (string, bool, error) {
	query := `
		DELETE FROM session_values
		WHERE session_id = ? AND key = ?
		RETURNING value, expires_at
	`

	var (
		value     string
		expiresAt sql.NullInt64
	)

	err := r.db.QueryRowContext(ctx, query, sid, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to take session value: %w", err)
	}

	if !r.live(expiresAt) {
		return "", false, nil
	}
	return value, true, nil
}

// PurgeExpired removes every value past its expiry and reports how many were removed.
func (r *SessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM session_values WHERE expires_at IS NOT NULL AND expires_at <= ?`

	result, err := r.db.ExecContext(ctx, query, r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge session values: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows, nil
}
