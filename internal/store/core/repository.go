package core

import (
	"context"
	"time"
)

// Repository es el contrato del almacén de registros del proxy.
// Implementaciones: pg (producción) y memory (dev/tests).
type Repository interface {
	Ping(ctx context.Context) error
	Close()

	// ---------- Tokens ----------

	// UpsertToken escribe la fila por (UserID, Provider); crea o pisa.
	UpsertToken(ctx context.Context, t *UserToken) error
	// GetToken devuelve ErrNotFound si no hay fila (expirada cuenta como presente).
	GetToken(ctx context.Context, userID, provider string) (*UserToken, error)
	DeleteToken(ctx context.Context, userID, provider string) error
	// ConnectedProviders lista providers con token vigente (no expirado) del usuario.
	ConnectedProviders(ctx context.Context, userID string, now time.Time) ([]string, error)

	// ---------- Auth states (codec signed-record) ----------

	// PutState borra cualquier state previo de (UserID, Provider) y guarda el nuevo.
	PutState(ctx context.Context, s *AuthState) error
	// GetState busca por (StateID, Provider); ErrNotFound si no existe.
	GetState(ctx context.Context, stateID, provider string) (*AuthState, error)
	// DeleteState borra la fila; ErrNotFound si ya no existía (single-use).
	DeleteState(ctx context.Context, stateID, provider string) error

	// ---------- Pending redirects ----------

	// PutPendingRedirect falla ErrConflict si el authState ya tiene destino.
	PutPendingRedirect(ctx context.Context, authState, localURL string) error
	// TakePendingRedirect lee y borra en un paso; ErrNotFound si no hay fila.
	TakePendingRedirect(ctx context.Context, authState string) (string, error)
}
