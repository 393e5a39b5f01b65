package pg

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/proxyjohn/internal/store/core"
)

// ---------- Tokens ----------

func (s *Store) UpsertToken(ctx context.Context, t *core.UserToken) error {
	const q = `
INSERT INTO oauth_token (user_id, provider, access_token, refresh_token, expires_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,NOW(),NOW())
ON CONFLICT (user_id, provider) DO UPDATE
SET access_token=EXCLUDED.access_token,
    refresh_token=EXCLUDED.refresh_token,
    expires_at=EXCLUDED.expires_at,
    updated_at=NOW()`
	_, err := s.pool.Exec(ctx, q, t.UserID, t.Provider, t.AccessToken, t.RefreshToken, t.ExpiresAt)
	return err
}

func (s *Store) GetToken(ctx context.Context, userID, provider string) (*core.UserToken, error) {
	const q = `
SELECT user_id, provider, access_token, refresh_token, expires_at, created_at, updated_at
FROM oauth_token
WHERE user_id=$1 AND provider=$2`
	var t core.UserToken
	err := s.pool.QueryRow(ctx, q, userID, provider).Scan(
		&t.UserID, &t.Provider, &t.AccessToken, &t.RefreshToken, &t.ExpiresAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (s *Store) DeleteToken(ctx context.Context, userID, provider string) error {
	const q = `DELETE FROM oauth_token WHERE user_id=$1 AND provider=$2`
	ct, err := s.pool.Exec(ctx, q, userID, provider)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ConnectedProviders(ctx context.Context, userID string, now time.Time) ([]string, error) {
	const q = `
SELECT provider FROM oauth_token
WHERE user_id=$1 AND expires_at > $2
ORDER BY provider`
	rows, err := s.pool.Query(ctx, q, userID, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
