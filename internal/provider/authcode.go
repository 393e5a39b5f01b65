package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// codeFlowURLProvider arma la URL de autorización estándar:
// client_id + redirect_uri + response_type=code + scope. No agrega state;
// eso lo decora el codec por encima.
type codeFlowURLProvider struct{}

func (codeFlowURLProvider) AuthorizeURL(cfg Config, redirectURI string) (string, error) {
	u, err := url.Parse(cfg.AuthorizeEndpoint)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("response_type", "code")
	if len(cfg.Scopes) > 0 {
		q.Set("scope", strings.Join(cfg.Scopes, " "))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// codeFlowExchanger canjea el authorization code por tokens contra el
// token endpoint del provider.
type codeFlowExchanger struct {
	client *http.Client
}

func (e *codeFlowExchanger) ExchangeCode(ctx context.Context, cfg Config, code string) (*TokenResult, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("code", code)

	tr, err := postForm(ctx, e.client, cfg.TokenEndpoint, form)
	if err != nil {
		return nil, err
	}
	return &TokenResult{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    tr.expiresAt(time.Now().UTC()),
	}, nil
}

// refreshExchanger renueva un access token con el refresh token guardado.
type refreshExchanger struct {
	client *http.Client
}

func (e *refreshExchanger) ExchangeRefreshToken(ctx context.Context, cfg Config, refreshToken string) (*TokenResult, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", cfg.ClientID)
	form.Set("client_secret", cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)

	tr, err := postForm(ctx, e.client, cfg.TokenEndpoint, form)
	if err != nil {
		return nil, err
	}
	out := &TokenResult{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    tr.expiresAt(time.Now().UTC()),
	}
	// hay IdPs que no rotan el refresh token: conservamos el viejo
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, nil
}
