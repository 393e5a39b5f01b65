package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/identity"
	"github.com/dropDatabas3/proxyjohn/internal/metrics"
	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
	"github.com/dropDatabas3/proxyjohn/internal/state"
)

// NewCallbackHandler cierra el dance: valida el state, canjea el code por
// tokens, los persiste y devuelve al navegador a su destino local.
func NewCallbackHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "provider")
		bundle, err := d.Registry.Resolve(name)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "unknown_provider", "provider no configurado: "+name, httpx.CodeProviderUnknown)
			return
		}
		if bundle.Codes == nil {
			httpx.WriteError(w, http.StatusBadRequest, "unsupported_flow", "el provider no usa authorization code", httpx.CodeBadParam)
			return
		}
		q := r.URL.Query()

		// el IdP puede volver con error en vez de code (acceso denegado)
		if e := q.Get("error"); e != "" {
			desc := q.Get("error_description")
			if desc == "" {
				desc = e
			}
			httpx.WriteError(w, http.StatusBadRequest, e, desc, httpx.CodeExchangeFailed)
			return
		}
		code := q.Get("code")
		if code == "" {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "falta el parámetro code", httpx.CodeBadParam)
			return
		}

		var userID, localRedirect string
		if bundle.Config.DisableStateValidation {
			// sin state: la identidad sale del request actual
			uid, ok := identity.FromContext(r.Context())
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "request sin usuario autenticado", httpx.CodeNoUser)
				return
			}
			userID = uid
		} else {
			params, err := d.Codec.Validate(r.Context(), bundle.Config.Name, q.Get("state"))
			if err != nil {
				reason := rejectReason(err)
				metrics.StatesRejected.WithLabelValues(bundle.Config.Name, reason).Inc()
				logger.From(r.Context()).Warn("state rechazado en callback",
					logger.Provider(bundle.Config.Name),
					logger.String("reason", reason),
				)
				// cualquier state que no valida corta acá: nunca se
				// canjea el code en nombre de nadie
				httpx.WriteError(w, http.StatusUnauthorized, "invalid_state", "state inválido, vencido o ya usado", httpx.CodeBadState)
				return
			}
			userID = params.UserID
			localRedirect = params.RedirectURL
		}

		res, err := bundle.Codes.ExchangeCode(r.Context(), bundle.Config, code)
		if err != nil {
			logger.From(r.Context()).Error("exchange de code falló",
				logger.Provider(bundle.Config.Name),
				logger.Err(err),
			)
			httpx.WriteError(w, http.StatusBadRequest, "exchange_failed", "el provider rechazó el canje del code", httpx.CodeExchangeFailed)
			return
		}
		if res.AccessToken == "" {
			httpx.WriteError(w, http.StatusBadRequest, "exchange_failed", "el provider respondió sin access token", httpx.CodeExchangeFailed)
			return
		}

		if err := d.Builder.Store(r.Context(), userID, bundle.Config.Name, res); err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "no se pudo guardar el token", httpx.CodeInternal)
			return
		}

		logger.From(r.Context()).Info("provider conectado",
			logger.Provider(bundle.Config.Name),
			logger.UserID(userID),
			logger.ExpiresAt(res.ExpiresAt),
		)

		if localRedirect != "" {
			// el destino ya pasó por la whitelist al emitirse, pero la
			// config pudo cambiar en el medio: se revalida antes de saltar
			if !validRedirectNow(d, bundle.Config.AllowHTTPRedirects, localRedirect) {
				httpx.WriteError(w, http.StatusBadRequest, "invalid_redirect", "destino local fuera de la whitelist", httpx.CodeBadRedirect)
				return
			}
			if isAJAX(r) {
				httpx.WriteJSON(w, http.StatusOK, map[string]string{
					"message":      "Authorization successful",
					"connected":    bundle.Config.Name,
					"redirect_url": localRedirect,
				})
				return
			}
			http.Redirect(w, r, localRedirect, http.StatusFound)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{
			"message":   "Authorization successful",
			"connected": bundle.Config.Name,
		})
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, state.ErrExpired):
		return "expired"
	case errors.Is(err, state.ErrTamperDetected):
		return "tampered"
	case errors.Is(err, state.ErrNotFoundOrUsed):
		return "not_found_or_used"
	case errors.Is(err, state.ErrInvalidFormat):
		return "bad_format"
	default:
		return "other"
	}
}
