package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
	"github.com/dropDatabas3/proxyjohn/internal/security/secretbox"
)

// sealedPurposePrefix liga cada state sellado a su provider: un state de
// "acme" no abre bajo "globex" aunque la clave maestra sea la misma.
const sealedPurposePrefix = "OAuthState:"

// SealedCodec serializa los params y los sella con cifrado autenticado.
// No guarda nada del lado servidor; la ventana de replay la acota el
// vencimiento embebido.
type SealedCodec struct {
	now func() time.Time
}

func NewSealedCodec() *SealedCodec {
	return &SealedCodec{now: time.Now}
}

var _ Codec = (*SealedCodec)(nil)

type sealedPayload struct {
	Params
	Exp int64 `json:"exp"`
}

func (c *SealedCodec) Issue(ctx context.Context, provider string, p Params) (string, error) {
	if p.UserID == "" {
		return "", ErrMissingUserID
	}
	payload := sealedPayload{Params: p, Exp: c.now().UTC().Add(TTL).Unix()}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("serializando state: %w", err)
	}
	sealed, err := secretbox.Seal(sealedPurposePrefix+provider, string(raw))
	if err != nil {
		return "", fmt.Errorf("sellando state: %w", err)
	}
	logger.Named("state").Debug("state sellado emitido", logger.Provider(provider))
	return sealed, nil
}

func (c *SealedCodec) Validate(ctx context.Context, provider, raw string) (*Params, error) {
	plain, err := secretbox.Open(sealedPurposePrefix+provider, raw)
	if err != nil {
		if errors.Is(err, secretbox.ErrOpenFailed) {
			return nil, ErrTamperDetected
		}
		return nil, fmt.Errorf("abriendo state: %w", err)
	}
	var payload sealedPayload
	if err := json.Unmarshal([]byte(plain), &payload); err != nil {
		return nil, ErrInvalidFormat
	}
	if c.now().UTC().After(time.Unix(payload.Exp, 0).UTC().Add(ClockSkew)) {
		return nil, ErrExpired
	}
	if payload.UserID == "" {
		return nil, ErrMissingUserID
	}
	p := payload.Params
	return &p, nil
}
