// Package state implementa los codecs de state anti-CSRF del dance OAuth:
// el firmado (registro server-side + HMAC) y el sellado (cifrado
// autenticado, sin estado en servidor).
package state

import (
	"context"
	"errors"
	"net/url"
	"time"
)

// TTL es la vida útil de un state emitido.
const TTL = 10 * time.Minute

// ClockSkew es la tolerancia al validar expiración entre relojes.
const ClockSkew = 60 * time.Second

var (
	// ErrInvalidFormat: el string no tiene la forma esperada.
	ErrInvalidFormat = errors.New("state con formato inválido")
	// ErrNotFoundOrUsed: no hay registro vivo para ese state (nunca
	// existió, expiró y fue barrido, o ya se consumió una vez).
	ErrNotFoundOrUsed = errors.New("state desconocido o ya usado")
	// ErrTamperDetected: la firma no verifica contra el secreto.
	ErrTamperDetected = errors.New("state adulterado")
	// ErrExpired: el state venció (más allá del margen de reloj).
	ErrExpired = errors.New("state vencido")
	// ErrMissingUserID: el payload validado no trae identidad.
	ErrMissingUserID = errors.New("state sin user id")
)

// Params es el payload que viaja (o se referencia) en el state.
type Params struct {
	UserID      string            `json:"uid"`
	RedirectURL string            `json:"redirect,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Codec emite y valida states. Validate consume: un state válido solo
// valida una vez en el codec firmado; el sellado es stateless y esa
// garantía la da la expiración corta.
type Codec interface {
	Issue(ctx context.Context, provider string, p Params) (string, error)
	Validate(ctx context.Context, provider, state string) (*Params, error)
}

// DecorateURL agrega (o reemplaza) el parámetro state de una URL de
// autorización ya armada, sin doble-encodear el resto de la query.
func DecorateURL(authorizeURL, stateValue string) (string, error) {
	u, err := url.Parse(authorizeURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Del("state")
	q.Set("state", stateValue)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
