package http

import (
	stdhttp "net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Handlers agrupa los endpoints ya armados (y con sus middlewares
// aplicados). El mux solo enruta; el wiring vive en app.
type Handlers struct {
	Authorize   stdhttp.Handler
	Callback    stdhttp.Handler
	Passthrough stdhttp.Handler
	Connected   stdhttp.Handler
	TokenDelete stdhttp.Handler
	Healthz     stdhttp.Handler
	Readyz      stdhttp.Handler
	Metrics     stdhttp.Handler
}

// NewMux arma el router del proxy debajo del prefijo dado
// (default /api/proxy). El passthrough genérico solo se monta si hay
// handler para él.
func NewMux(prefix string, h Handlers) *chi.Mux {
	if prefix == "" {
		prefix = "/api/proxy"
	}
	prefix = "/" + strings.Trim(prefix, "/")

	r := chi.NewRouter()

	if h.Healthz != nil {
		r.Method(stdhttp.MethodGet, "/healthz", h.Healthz)
	}
	if h.Readyz != nil {
		r.Method(stdhttp.MethodGet, "/readyz", h.Readyz)
	}
	if h.Metrics != nil {
		r.Method(stdhttp.MethodGet, "/metrics", h.Metrics)
	}

	r.Route(prefix, func(r chi.Router) {
		if h.Connected != nil {
			r.Method(stdhttp.MethodGet, "/connected", h.Connected)
		}
		r.Method(stdhttp.MethodGet, "/{provider}/authorize", h.Authorize)
		r.Method(stdhttp.MethodGet, "/{provider}/callback", h.Callback)
		if h.TokenDelete != nil {
			r.Method(stdhttp.MethodDelete, "/{provider}/token", h.TokenDelete)
		}
		// los segmentos fijos (authorize, callback, token, connected)
		// ganan sobre el comodín: el resto va al passthrough
		if h.Passthrough != nil {
			r.Handle("/{provider}/*", h.Passthrough)
		}
	})

	return r
}
