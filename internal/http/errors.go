package http

import (
	"encoding/json"
	"net/http"
)

// Códigos numéricos de error del proxy (rango 2xxx):
//
//	2001 provider no configurado
//	2002 request sin usuario
//	2003 state inválido/vencido/usado
//	2004 redirect no permitido
//	2005 exchange contra el provider falló
//	2006 sin token guardado
//	2007 rate limit
//	2008 parámetro inválido
//	2009 error interno
const (
	CodeProviderUnknown = 2001
	CodeNoUser          = 2002
	CodeBadState        = 2003
	CodeBadRedirect     = 2004
	CodeExchangeFailed  = 2005
	CodeNoToken         = 2006
	CodeRateLimited     = 2007
	CodeBadParam        = 2008
	CodeInternal        = 2009
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCode        int    `json:"error_code,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, status int, code, desc string, errCode int) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	rid := w.Header().Get("X-Request-ID")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		ErrorCode:        errCode,
		RequestID:        rid,
	})
}

// WriteJSON: respuesta JSON estándar
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
