package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// defaultTokenLifetimeDays aplica cuando ni el endpoint manda expires_in
// ni la config define TokenExpirationDays.
const defaultTokenLifetimeDays = 360

// credentialsExchanger obtiene tokens de máquina (sin usuario, sin refresh).
type credentialsExchanger struct {
	client *http.Client
}

func (e *credentialsExchanger) ExchangeToken(ctx context.Context, cfg Config) (*TokenResult, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	if len(cfg.Scopes) > 0 {
		form.Set("scope", strings.Join(cfg.Scopes, " "))
	}

	tr, err := postForm(ctx, e.client, cfg.TokenEndpoint, form)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	// Cadena de fallback de expiración: expires_in del endpoint, si no
	// TokenExpirationDays de la config, si no el default de 360 días.
	var expiresAt time.Time
	switch {
	case tr.ExpiresIn > 0:
		expiresAt = tr.expiresAt(now)
	case cfg.TokenExpirationDays > 0:
		expiresAt = now.AddDate(0, 0, cfg.TokenExpirationDays)
	default:
		expiresAt = now.AddDate(0, 0, defaultTokenLifetimeDays)
	}

	return &TokenResult{
		AccessToken: tr.AccessToken,
		ExpiresAt:   expiresAt,
	}, nil
}
