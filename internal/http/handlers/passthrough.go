package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
)

// hop-by-hop y credenciales propias: no se reenvían al provider.
var skipForwardHeaders = map[string]struct{}{
	"Authorization":     {},
	"Connection":        {},
	"Keep-Alive":        {},
	"Proxy-Connection":  {},
	"Te":                {},
	"Trailer":           {},
	"Transfer-Encoding": {},
	"Upgrade":           {},
	"Cookie":            {},
	"Host":              {},
}

// ClientResolver entrega el http.Client saliente armado para un provider
// (cadena de middlewares + inyector de bearer).
type ClientResolver func(name string) (*http.Client, error)

// NewPassthroughHandler reenvía {prefix}/{provider}/* hacia la API
// base del provider con el bearer token del usuario inyectado. Respuesta
// del provider tal cual: status, headers y body sin tocar.
func NewPassthroughHandler(d Deps, clients ClientResolver) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "provider")
		bundle, err := d.Registry.Resolve(name)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "unknown_provider", "provider no configurado: "+name, httpx.CodeProviderUnknown)
			return
		}
		if bundle.Config.APIBaseURL == "" {
			httpx.WriteError(w, http.StatusNotFound, "not_mapped", "el provider no expone API genérica", httpx.CodeBadParam)
			return
		}

		client, err := clients(bundle.Config.Name)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "server_error", "sin cliente saliente para el provider", httpx.CodeInternal)
			return
		}

		rest := chi.URLParam(r, "*")
		target := strings.TrimRight(bundle.Config.APIBaseURL, "/") + "/" + strings.TrimLeft(rest, "/")
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}

		out, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "no se pudo armar el request saliente", httpx.CodeBadParam)
			return
		}
		for k, vs := range r.Header {
			if _, skip := skipForwardHeaders[http.CanonicalHeaderKey(k)]; skip {
				continue
			}
			for _, v := range vs {
				out.Header.Add(k, v)
			}
		}

		resp, err := client.Do(out)
		if err != nil {
			logger.From(r.Context()).Error("passthrough falló",
				logger.Provider(bundle.Config.Name),
				logger.Endpoint(target),
				logger.Err(err),
			)
			httpx.WriteError(w, http.StatusInternalServerError, "upstream_error", "el provider no respondió", httpx.CodeInternal)
			return
		}
		defer resp.Body.Close()

		for k, vs := range resp.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}
}
