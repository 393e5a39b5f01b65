// Package proxy arma los clientes HTTP salientes por provider: una cadena
// de RoundTrippers con el inyector de bearer token como pieza central.
package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dropDatabas3/proxyjohn/internal/identity"
	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
	"github.com/dropDatabas3/proxyjohn/internal/provider"
	"github.com/dropDatabas3/proxyjohn/internal/token"
)

// BearerTransport resuelve el access token del usuario del request y lo
// inyecta como Authorization: Bearer antes de pasar al transporte base.
// Los fallos de resolución NO viajan como error de red: se sintetiza una
// respuesta con el status que corresponde, para que el caller la vea
// como cualquier respuesta del provider.
type BearerTransport struct {
	Provider string
	Builder  *token.Builder
	Base     http.RoundTripper
}

var _ http.RoundTripper = (*BearerTransport)(nil)

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	userID, ok := identity.FromContext(req.Context())
	if !ok {
		return synthetic(req, http.StatusUnauthorized, "request sin usuario autenticado"), nil
	}

	at, err := t.Builder.AccessToken(req.Context(), userID, t.Provider)
	if err != nil {
		status := http.StatusInternalServerError
		var te *token.Error
		if errors.As(err, &te) {
			status = te.Kind.HTTPStatus()
		}
		logger.Named("proxy").Warn("no se pudo resolver access token",
			logger.Provider(t.Provider),
			logger.UserID(userID),
			logger.Status(status),
			logger.Err(err),
		)
		return synthetic(req, status, "no se pudo resolver el access token"), nil
	}

	// RoundTrippers no deben mutar el request original
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+at)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}

// synthetic arma una respuesta local con cuerpo JSON de error.
func synthetic(req *http.Request, status int, desc string) *http.Response {
	body, _ := json.Marshal(map[string]any{
		"error":             http.StatusText(status),
		"error_description": desc,
	})
	return &http.Response{
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode: status,
		Proto:      req.Proto,
		ProtoMajor: req.ProtoMajor,
		ProtoMinor: req.ProtoMinor,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
}

// Chain envuelve un RoundTripper con los middlewares dados: el primero de
// la lista queda más afuera (ve el request antes que el resto).
func Chain(base http.RoundTripper, mws ...provider.OutboundMiddleware) http.RoundTripper {
	rt := base
	for i := len(mws) - 1; i >= 0; i-- {
		rt = mws[i](rt)
	}
	return rt
}

// NewClient arma el http.Client saliente de un provider: la cadena de
// middlewares registrada, con el inyector de bearer al fondo, y el
// timeout propio del provider.
func NewClient(bundle *provider.Bundle, builder *token.Builder) *http.Client {
	var rt http.RoundTripper = &BearerTransport{
		Provider: bundle.Config.Name,
		Builder:  builder,
	}
	rt = Chain(rt, bundle.Outbound...)
	return &http.Client{
		Transport: rt,
		Timeout:   bundle.Config.HTTPTimeout,
	}
}
