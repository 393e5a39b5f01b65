package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/identity"
	"github.com/dropDatabas3/proxyjohn/internal/store/core"
)

// NewConnectedHandler lista los providers con token vigente del usuario.
func NewConnectedHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := identity.FromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "request sin usuario autenticado", httpx.CodeNoUser)
			return
		}
		names, err := d.Repo.ConnectedProviders(r.Context(), userID, time.Now().UTC())
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo leer el estado de conexión", httpx.CodeInternal)
			return
		}
		if names == nil {
			names = []string{}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"connected": names})
	}
}

// NewTokenDeleteHandler desconecta al usuario de un provider: borra su
// token guardado. 204 si había, 404 si no.
func NewTokenDeleteHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := identity.FromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "request sin usuario autenticado", httpx.CodeNoUser)
			return
		}
		name := chi.URLParam(r, "provider")
		bundle, err := d.Registry.Resolve(name)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "unknown_provider", "provider no configurado: "+name, httpx.CodeProviderUnknown)
			return
		}
		// el registro normaliza los nombres; el store guarda el canónico
		if err := d.Repo.DeleteToken(r.Context(), userID, bundle.Config.Name); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				httpx.WriteError(w, http.StatusNotFound, "not_found", "no hay token guardado para ese provider", httpx.CodeNoToken)
				return
			}
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo borrar el token", httpx.CodeInternal)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
