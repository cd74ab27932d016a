package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the session audit trail.
type Repository interface {
	InsertSession(ctx context.Context, sid string, userID int64, expiresAt time.Time) error
	DeleteSession(ctx context.Context, sid string) error
	DeleteSessionsOfUser(ctx context.Context, userID int64) (int64, error)
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// PGRepository provides PostgreSQL backed session auditing.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

// InsertSession records a fresh login. Re-login on an existing session id
// refreshes the row.
func (r *PGRepository) InsertSession(ctx context.Context, sid string, userID int64, expiresAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (sid, user_id, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (sid) DO UPDATE SET user_id = excluded.user_id, expires_at = excluded.expires_at`,
		sid, userID, expiresAt)
	return err
}

// DeleteSession drops the audit row after logout.
func (r *PGRepository) DeleteSession(ctx context.Context, sid string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE sid = $1`, sid)
	return err
}

// DeleteSessionsOfUser drops every audit row of one user.
func (r *PGRepository) DeleteSessionsOfUser(ctx context.Context, userID int64) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredSessions sweeps rows whose expiry passed before the cutoff.
func (r *PGRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
