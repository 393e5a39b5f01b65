package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestAuthorizeURLDefault(t *testing.T) {
	cfg := Config{
		Name:              "acme",
		ClientID:          "cid",
		AuthorizeEndpoint: "https://idp.acme.test/authorize?audience=api",
		Scopes:            []string{"read", "write"},
	}
	raw, err := codeFlowURLProvider{}.AuthorizeURL(cfg, "https://proxy.test/api/proxy/acme/callback")
	if err != nil {
		t.Fatalf("AuthorizeURL: %v", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	q := u.Query()
	if q.Get("client_id") != "cid" || q.Get("response_type") != "code" {
		t.Fatalf("query = %v", q)
	}
	if q.Get("scope") != "read write" {
		t.Fatalf("scope = %q", q.Get("scope"))
	}
	// se preserva la query preexistente del endpoint
	if q.Get("audience") != "api" {
		t.Fatalf("audience perdido: %v", q)
	}
	if q.Has("state") {
		t.Fatalf("el default no debe embeber state")
	}
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600}`))
	}))
	defer srv.Close()

	cfg := Config{Name: "acme", ClientID: "cid", ClientSecret: "sec", TokenEndpoint: srv.URL}
	ex := &codeFlowExchanger{client: srv.Client()}
	res, err := ex.ExchangeCode(context.Background(), cfg, "code-xyz")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if res.AccessToken != "at-1" || res.RefreshToken != "rt-1" {
		t.Fatalf("res = %+v", res)
	}
	want := time.Now().UTC().Add(time.Hour)
	if d := res.ExpiresAt.Sub(want); d < -5*time.Second || d > 5*time.Second {
		t.Fatalf("ExpiresAt = %v, quería ~%v", res.ExpiresAt, want)
	}
	if gotForm.Get("grant_type") != "authorization_code" || gotForm.Get("code") != "code-xyz" {
		t.Fatalf("form = %v", gotForm)
	}
}

func TestExchangeCodeNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := Config{Name: "acme", TokenEndpoint: srv.URL}
	ex := &codeFlowExchanger{client: srv.Client()}
	_, err := ex.ExchangeCode(context.Background(), cfg, "code")
	if !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("err = %v, quería ErrExchangeFailed", err)
	}
	if !strings.Contains(err.Error(), "invalid_grant") {
		t.Fatalf("el error debería llevar el detalle: %v", err)
	}
}

func TestExchangeCodeBadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>no soy json</html>`))
	}))
	defer srv.Close()

	ex := &codeFlowExchanger{client: srv.Client()}
	_, err := ex.ExchangeCode(context.Background(), Config{Name: "x", TokenEndpoint: srv.URL}, "code")
	if !errors.Is(err, ErrExchangeFailed) {
		t.Fatalf("err = %v, quería ErrExchangeFailed", err)
	}
}

func TestExchangeRefreshKeepsOldRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// IdP que no rota el refresh token
		w.Write([]byte(`{"access_token":"at-2","expires_in":1800}`))
	}))
	defer srv.Close()

	ex := &refreshExchanger{client: srv.Client()}
	res, err := ex.ExchangeRefreshToken(context.Background(), Config{Name: "x", TokenEndpoint: srv.URL}, "rt-old")
	if err != nil {
		t.Fatalf("ExchangeRefreshToken: %v", err)
	}
	if res.RefreshToken != "rt-old" {
		t.Fatalf("RefreshToken = %q, debería conservar el viejo", res.RefreshToken)
	}
}

func TestClientCredentialsExpiryFallback(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		cfgDays  int
		wantFrom time.Duration
	}{
		{"expires_in manda", `{"access_token":"a","expires_in":60}`, 5, time.Minute},
		{"config days", `{"access_token":"a"}`, 30, 30 * 24 * time.Hour},
		{"default 360 dias", `{"access_token":"a"}`, 0, 360 * 24 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			cfg := Config{Name: "svc", TokenEndpoint: srv.URL, TokenExpirationDays: tc.cfgDays}
			ex := &credentialsExchanger{client: srv.Client()}
			res, err := ex.ExchangeToken(context.Background(), cfg)
			if err != nil {
				t.Fatalf("ExchangeToken: %v", err)
			}
			want := time.Now().UTC().Add(tc.wantFrom)
			if d := res.ExpiresAt.Sub(want); d < -5*time.Second || d > 5*time.Second {
				t.Fatalf("ExpiresAt = %v, quería ~%v", res.ExpiresAt, want)
			}
		})
	}
}

func TestExpiresInAsString(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access_token":"a","expires_in":"900"}`))
	}))
	defer srv.Close()

	ex := &codeFlowExchanger{client: srv.Client()}
	res, err := ex.ExchangeCode(context.Background(), Config{Name: "x", TokenEndpoint: srv.URL}, "c")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	want := time.Now().UTC().Add(15 * time.Minute)
	if d := res.ExpiresAt.Sub(want); d < -5*time.Second || d > 5*time.Second {
		t.Fatalf("ExpiresAt = %v", res.ExpiresAt)
	}
}
