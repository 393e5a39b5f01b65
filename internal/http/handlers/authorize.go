package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/identity"
	"github.com/dropDatabas3/proxyjohn/internal/metrics"
	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
	"github.com/dropDatabas3/proxyjohn/internal/state"
	"github.com/dropDatabas3/proxyjohn/internal/validation"
)

// NewAuthorizeHandler arranca el dance: arma la URL de autorización del
// provider, emite el state y manda al navegador para allá (302, o JSON
// con la URL si el request es AJAX).
func NewAuthorizeHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "provider")
		bundle, err := d.Registry.Resolve(name)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "unknown_provider", "provider no configurado: "+name, httpx.CodeProviderUnknown)
			return
		}
		if bundle.URLs == nil {
			httpx.WriteError(w, http.StatusBadRequest, "unsupported_flow", "el provider no usa authorization code", httpx.CodeBadParam)
			return
		}

		userID, ok := identity.FromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "request sin usuario autenticado", httpx.CodeNoUser)
			return
		}

		localRedirect := r.URL.Query().Get(d.RedirectParam)
		// sin state no hay dónde acarrear el destino hasta el callback:
		// mejor rechazarlo que perderlo en silencio
		if localRedirect != "" && bundle.Config.DisableStateValidation {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_redirect", "el provider no soporta destino local (validación de state deshabilitada)", httpx.CodeBadRedirect)
			return
		}
		if localRedirect != "" && !validation.ValidRedirect(d.WhitelistedRedirects, localRedirect, d.AllowHTTPRedirects || bundle.Config.AllowHTTPRedirects) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_redirect", "destino local fuera de la whitelist", httpx.CodeBadRedirect)
			return
		}

		authURL, err := bundle.URLs.AuthorizeURL(bundle.Config, callbackURL(r))
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo armar la URL de autorización", httpx.CodeInternal)
			return
		}

		if !bundle.Config.DisableStateValidation {
			st, err := d.Codec.Issue(r.Context(), bundle.Config.Name, state.Params{
				UserID:      userID,
				RedirectURL: localRedirect,
			})
			if err != nil {
				logger.From(r.Context()).Error("no se pudo emitir state",
					logger.Provider(bundle.Config.Name),
					logger.Err(err),
				)
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo emitir el state", httpx.CodeInternal)
				return
			}
			metrics.StatesIssued.WithLabelValues(bundle.Config.Name, codecName(d.Codec)).Inc()
			if authURL, err = state.DecorateURL(authURL, st); err != nil {
				httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo decorar la URL", httpx.CodeInternal)
				return
			}
		}

		if isAJAX(r) {
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"authorization_url": authURL})
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

func codecName(c state.Codec) string {
	switch c.(type) {
	case *state.SealedCodec:
		return "sealed"
	default:
		return "signed"
	}
}
