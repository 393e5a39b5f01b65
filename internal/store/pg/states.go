package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/proxyjohn/internal/store/core"
)

// ---------- Auth states ----------

// PutState borra el state previo de (UserID, Provider) y escribe el nuevo,
// en una transacción: un usuario tiene a lo sumo un state vivo por provider.
func (s *Store) PutState(ctx context.Context, st *core.AuthState) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM oauth_state WHERE user_id=$1 AND provider=$2`, st.UserID, st.Provider); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
INSERT INTO oauth_state (state_id, provider, user_id, secret, expires_at, created_at)
VALUES ($1,$2,$3,$4,$5,NOW())`,
		st.StateID, st.Provider, st.UserID, st.Secret, st.ExpiresAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) GetState(ctx context.Context, stateID, provider string) (*core.AuthState, error) {
	const q = `
SELECT state_id, provider, user_id, secret, expires_at, created_at
FROM oauth_state
WHERE state_id=$1 AND provider=$2`
	var st core.AuthState
	err := s.pool.QueryRow(ctx, q, stateID, provider).Scan(
		&st.StateID, &st.Provider, &st.UserID, &st.Secret, &st.ExpiresAt, &st.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &st, nil
}

// DeleteState es el paso single-use: si otro request ya consumió la fila,
// RowsAffected()==0 y el caller debe tratar el state como usado.
func (s *Store) DeleteState(ctx context.Context, stateID, provider string) error {
	const q = `DELETE FROM oauth_state WHERE state_id=$1 AND provider=$2`
	ct, err := s.pool.Exec(ctx, q, stateID, provider)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ---------- Pending redirects ----------

func (s *Store) PutPendingRedirect(ctx context.Context, authState, localURL string) error {
	const q = `
INSERT INTO pending_redirect (auth_state, local_redirect_url, created_at)
VALUES ($1,$2,NOW())
ON CONFLICT (auth_state) DO NOTHING`
	ct, err := s.pool.Exec(ctx, q, authState, localURL)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return core.ErrConflict
	}
	return nil
}

// TakePendingRedirect consume la fila en un solo statement (DELETE ... RETURNING).
func (s *Store) TakePendingRedirect(ctx context.Context, authState string) (string, error) {
	const q = `DELETE FROM pending_redirect WHERE auth_state=$1 RETURNING local_redirect_url`
	var url string
	err := s.pool.QueryRow(ctx, q, authState).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", core.ErrNotFound
		}
		return "", err
	}
	return url, nil
}
