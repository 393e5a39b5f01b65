// Package middlewares trae los decoradores HTTP del proxy: request id,
// logging por request, resolución de identidad y rate limit del dance.
package middlewares

import "net/http"

// Middleware decora un http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain arma la cadena con el primero de la lista más afuera:
// Chain(h, A, B) atiende como A(B(h)). El mismo orden que la cadena
// saliente de proxy.Chain.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ChainFunc es Chain para un http.HandlerFunc pelado.
func ChainFunc(hf http.HandlerFunc, mws ...Middleware) http.Handler {
	return Chain(hf, mws...)
}
