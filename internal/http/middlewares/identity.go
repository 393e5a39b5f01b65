package middlewares

import (
	"net/http"

	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/identity"
)

// WithUser resuelve el usuario del request y lo deja en el contexto.
// No corta requests anónimos: cada handler decide si exige identidad
// (el callback con state sellado la recupera del propio state).
func WithUser(p identity.UserIDProvider) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if uid, err := p.UserID(r); err == nil {
				r = r.WithContext(identity.WithUserID(r.Context(), uid))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUser corta con 401 si el request no trae usuario resuelto.
func RequireUser() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := identity.FromContext(r.Context()); !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "request sin usuario autenticado", httpx.CodeNoUser)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
