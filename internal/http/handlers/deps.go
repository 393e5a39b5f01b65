// Package handlers implementa los endpoints del proxy: el dance
// (authorize/callback), el passthrough a la API del provider y las
// lecturas de estado de conexión.
package handlers

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/proxyjohn/internal/provider"
	"github.com/dropDatabas3/proxyjohn/internal/state"
	"github.com/dropDatabas3/proxyjohn/internal/store/core"
	"github.com/dropDatabas3/proxyjohn/internal/token"
)

// Deps agrupa lo que comparten los handlers del dance.
type Deps struct {
	Registry *provider.Registry
	Repo     core.Repository
	Builder  *token.Builder
	Codec    state.Codec

	// WhitelistedRedirects filtra los destinos locales post-callback.
	// Vacía = permitir todo.
	WhitelistedRedirects []string
	// RedirectParam es el query param con el destino local ("local_redirect_uri").
	RedirectParam string
	// AllowHTTPRedirects habilita destinos http:// (dev).
	AllowHTTPRedirects bool
}

// isAJAX detecta el transporte dual: los requests de fetch()/XHR reciben
// JSON con la URL en vez de un 302 que el browser seguiría solo.
func isAJAX(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}

// callbackURL reconstruye la URL absoluta del request y reescribe el
// último segmento authorize -> callback, sin query. Es lo que se manda
// como redirect_uri al provider.
func callbackURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		scheme = xf
	}
	host := r.Host
	if xf := r.Header.Get("X-Forwarded-Host"); xf != "" {
		host = xf
	}
	path := r.URL.Path
	if strings.HasSuffix(path, "/authorize") {
		path = strings.TrimSuffix(path, "/authorize") + "/callback"
	}
	return scheme + "://" + host + path
}
