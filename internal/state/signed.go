package state

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
	"github.com/dropDatabas3/proxyjohn/internal/store/core"
)

// SignedCodec emite states "stateId.expUnix.hmac": el secreto HMAC de
// 256 bits vive solo del lado servidor, junto al user id y el redirect
// pendiente. Validar consume el registro (un solo uso).
type SignedCodec struct {
	repo core.Repository
	now  func() time.Time
}

func NewSignedCodec(repo core.Repository) *SignedCodec {
	return &SignedCodec{repo: repo, now: time.Now}
}

var _ Codec = (*SignedCodec)(nil)

func (c *SignedCodec) Issue(ctx context.Context, provider string, p Params) (string, error) {
	if p.UserID == "" {
		return "", ErrMissingUserID
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("generando secreto de state: %w", err)
	}

	stateID := uuid.NewString()
	now := c.now().UTC()
	expiresAt := now.Add(TTL)

	rec := &core.AuthState{
		StateID:   stateID,
		Provider:  provider,
		UserID:    p.UserID,
		Secret:    base64.RawURLEncoding.EncodeToString(secret),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	// PutState desplaza cualquier state vivo previo del mismo
	// (usuario, provider): a lo sumo un dance en vuelo por par.
	if err := c.repo.PutState(ctx, rec); err != nil {
		return "", fmt.Errorf("guardando state: %w", err)
	}
	if p.RedirectURL != "" {
		if err := c.repo.PutPendingRedirect(ctx, stateID, p.RedirectURL); err != nil {
			return "", fmt.Errorf("guardando redirect pendiente: %w", err)
		}
	}

	exp := strconv.FormatInt(expiresAt.Unix(), 10)
	sig := sign(secret, stateID, exp)

	logger.Named("state").Debug("state firmado emitido",
		logger.Provider(provider),
		logger.StateID(stateID),
		logger.ExpiresAt(expiresAt),
	)
	return stateID + "." + exp + "." + sig, nil
}

func (c *SignedCodec) Validate(ctx context.Context, provider, raw string) (*Params, error) {
	stateID, exp, sig, err := splitSigned(raw)
	if err != nil {
		return nil, err
	}

	// Chequeo rápido de vencimiento antes de tocar el store: un state
	// vencido o malformado NUNCA consume el registro.
	expiresAt := time.Unix(exp, 0).UTC()
	if c.now().UTC().After(expiresAt.Add(ClockSkew)) {
		return nil, ErrExpired
	}

	rec, err := c.repo.GetState(ctx, stateID, provider)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrNotFoundOrUsed
		}
		return nil, fmt.Errorf("leyendo state: %w", err)
	}

	secretBytes, err := base64.RawURLEncoding.DecodeString(rec.Secret)
	if err != nil {
		return nil, fmt.Errorf("secreto de state corrupto: %w", err)
	}
	want := sign(secretBytes, stateID, strconv.FormatInt(exp, 10))
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return nil, ErrTamperDetected
	}
	// La expiración autoritativa es la del registro.
	if c.now().UTC().After(rec.ExpiresAt.Add(ClockSkew)) {
		return nil, ErrExpired
	}

	// Un solo uso: el borrado es parte de la validación exitosa. Si
	// otro request lo consumió entre el Get y acá, perdimos la carrera.
	if err := c.repo.DeleteState(ctx, stateID, provider); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrNotFoundOrUsed
		}
		return nil, fmt.Errorf("consumiendo state: %w", err)
	}

	p := &Params{UserID: rec.UserID}
	if redir, err := c.repo.TakePendingRedirect(ctx, stateID); err == nil {
		p.RedirectURL = redir
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, fmt.Errorf("leyendo redirect pendiente: %w", err)
	}
	return p, nil
}

// CheckFormatAndExpiry valida forma y vencimiento sin tocar el store.
// Para rechazar basura barato en el borde HTTP.
func CheckFormatAndExpiry(raw string, now time.Time) error {
	_, exp, _, err := splitSigned(raw)
	if err != nil {
		return err
	}
	if now.UTC().After(time.Unix(exp, 0).UTC().Add(ClockSkew)) {
		return ErrExpired
	}
	return nil
}

func splitSigned(raw string) (stateID string, exp int64, sig string, err error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 || parts[0] == "" || parts[2] == "" {
		return "", 0, "", ErrInvalidFormat
	}
	if _, err := uuid.Parse(parts[0]); err != nil {
		return "", 0, "", ErrInvalidFormat
	}
	n, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, "", ErrInvalidFormat
	}
	return parts[0], n, parts[2], nil
}

func sign(secret []byte, stateID, exp string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(stateID))
	mac.Write([]byte("."))
	mac.Write([]byte(exp))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
