package token

import (
	"fmt"
	"net/http"
)

// Kind clasifica los fallos del builder con su status HTTP sugerido.
// Las capas HTTP lo propagan tal cual hacia el cliente del proxy.
type Kind int

const (
	// KindUnauthorized: no hay token utilizable y no se puede renovar
	// sin que el usuario vuelva a pasar por el dance.
	KindUnauthorized Kind = iota
	// KindBadRequest: provider desconocido o respuesta 2xx sin token.
	KindBadRequest
	// KindInternal: fallo propio o del tercero (store, exchange roto).
	KindInternal
)

func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindBadRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error es el error tipado del builder.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("token: provider %s: kind %d", e.Provider, e.Kind)
	}
	return fmt.Sprintf("token: provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fail(kind Kind, provider string, err error) *Error {
	return &Error{Kind: kind, Provider: provider, Err: err}
}
