package sessions

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cv-optimizer/internal/shared/apperr"
)

// PGStore implements Store using Postgres. The full aggregate lives in a
// JSONB column; status and timestamps are duplicated for querying.
type PGStore struct {
	DB *sql.DB
}

func (r *PGStore) Create(ctx context.Context, s Session) error {
	const query = `
INSERT INTO sessions (id, status, state, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)`
	state, err := encodeState(s)
	if err != nil {
		return err
	}
	if _, err := r.DB.ExecContext(ctx, query, s.ID, string(s.Status), state, s.CreatedAt, s.UpdatedAt); err != nil {
		return apperr.Storage("create session", err)
	}
	return nil
}

func (r *PGStore) Get(ctx context.Context, id string) (Session, error) {
	const query = `SELECT state FROM sessions WHERE id = $1`
	var state []byte
	if err := r.DB.QueryRowContext(ctx, query, id).Scan(&state); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, apperr.Storage("load session", err)
	}
	s, err := decodeState(state)
	if err != nil {
		return Session{}, apperr.Storage("load session", err)
	}
	return s, nil
}

func (r *PGStore) Update(ctx context.Context, s Session) error {
	const query = `
UPDATE sessions
SET status = $2, state = $3, updated_at = $4
WHERE id = $1`
	state, err := encodeState(s)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, s.ID, string(s.Status), state, s.UpdatedAt)
	if err != nil {
		return apperr.Storage("update session", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperr.Storage("update session", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGStore) Delete(ctx context.Context, id string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return apperr.Storage("delete session", err)
	}
	return nil
}

// PurgeExpired deletes sessions not updated since before and returns their ids.
func (r *PGStore) PurgeExpired(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `DELETE FROM sessions WHERE updated_at < $1 RETURNING id`, before)
	if err != nil {
		return nil, apperr.Storage("purge sessions", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Storage("purge sessions", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Storage("purge sessions", err)
	}
	return ids, nil
}

var (
	_ Store  = (*PGStore)(nil)
	_ Purger = (*PGStore)(nil)
)
