// Package identity resuelve la identidad del usuario dueño de cada request.
// El proxy no emite sesiones propias: delega en el host (JWT bearer en
// producción, header plano en dev).
package identity

import (
	"context"
	"errors"
	"net/http"
)

var ErrNoUser = errors.New("request sin usuario autenticado")

// UserIDProvider extrae el user id estable de un request entrante.
// Devuelve ErrNoUser cuando el request es anónimo.
type UserIDProvider interface {
	UserID(r *http.Request) (string, error)
}

type ctxKey struct{}

// WithUserID deja el user id resuelto en el contexto del request.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext recupera el user id resuelto; ok=false si no hay.
func FromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKey{}).(string)
	return v, ok && v != ""
}
