package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/http/middlewares"
	"github.com/dropDatabas3/proxyjohn/internal/identity"
	"github.com/dropDatabas3/proxyjohn/internal/provider"
	"github.com/dropDatabas3/proxyjohn/internal/state"
	"github.com/dropDatabas3/proxyjohn/internal/store/core"
	"github.com/dropDatabas3/proxyjohn/internal/store/memory"
	"github.com/dropDatabas3/proxyjohn/internal/token"
)

type stubCode struct {
	result *provider.TokenResult
	err    error
	codes  []string
}

func (s *stubCode) ExchangeCode(ctx context.Context, cfg provider.Config, code string) (*provider.TokenResult, error) {
	s.codes = append(s.codes, code)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type fixture struct {
	repo    *memory.Store
	deps    Deps
	mux     http.Handler
	code    *stubCode
	codeURL string
}

func newFixture(t *testing.T, mutate func(*provider.Config)) *fixture {
	t.Helper()
	repo := memory.New()

	code := &stubCode{result: &provider.TokenResult{
		AccessToken:  "at-dance",
		RefreshToken: "rt-dance",
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
	}}

	pc := provider.Config{
		Name:              "acme",
		ClientID:          "cid",
		ClientSecret:      "sec",
		AuthorizeEndpoint: "https://idp.acme.test/authorize",
		TokenEndpoint:     "https://idp.acme.test/token",
		APIBaseURL:        "https://api.acme.test",
	}
	if mutate != nil {
		mutate(&pc)
	}
	reg := provider.NewRegistry()
	require.NoError(t, reg.Register(pc, provider.FlowAuthorizationCode, provider.WithCodeExchanger(code)))

	d := Deps{
		Registry:             reg,
		Repo:                 repo,
		Builder:              token.NewBuilder(reg, repo),
		Codec:                state.NewSignedCodec(repo),
		WhitelistedRedirects: []string{"https://app.test/*"},
		RedirectParam:        "local_redirect_uri",
	}

	base := []middlewares.Middleware{
		middlewares.WithRequestID(),
		middlewares.WithUser(&identity.HeaderProvider{}),
		middlewares.WithLogging(),
	}
	mux := httpx.NewMux("/api/proxy", httpx.Handlers{
		Authorize:   middlewares.ChainFunc(NewAuthorizeHandler(d), base...),
		Callback:    middlewares.ChainFunc(NewCallbackHandler(d), base...),
		Connected:   middlewares.ChainFunc(NewConnectedHandler(d), base...),
		TokenDelete: middlewares.ChainFunc(NewTokenDeleteHandler(d), base...),
		Healthz:     NewHealthzHandler(),
		Readyz:      NewReadyzHandler(repo, false),
	})

	return &fixture{repo: repo, deps: d, mux: mux, code: code}
}

func (f *fixture) do(t *testing.T, method, target, user string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if user != "" {
		req.Header.Set(identity.DefaultDevHeader, user)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestAuthorizeRedirects(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/authorize?local_redirect_uri=https://app.test/done", "u-1", nil)

	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "idp.acme.test", loc.Host)

	q := loc.Query()
	require.Equal(t, "cid", q.Get("client_id"))
	require.Equal(t, "code", q.Get("response_type"))
	// redirect_uri apunta al callback del proxy, sin query
	require.Equal(t, "http://proxy.test/api/proxy/acme/callback", q.Get("redirect_uri"))
	// state emitido con formato id.exp.firma
	require.Len(t, strings.Split(q.Get("state"), "."), 3)
}

func TestAuthorizeAJAXReturnsJSON(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/authorize", "u-1",
		map[string]string{"X-Requested-With": "XMLHttpRequest"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["authorization_url"], "https://idp.acme.test/authorize")
}

func TestAuthorizeRejections(t *testing.T) {
	f := newFixture(t, nil)

	// anónimo
	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/authorize", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// provider desconocido
	rec = f.do(t, "GET", "http://proxy.test/api/proxy/globex/authorize", "u-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// redirect fuera de whitelist
	rec = f.do(t, "GET", "http://proxy.test/api/proxy/acme/authorize?local_redirect_uri=https://atacante.test/", "u-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// redirect http con https-only
	rec = f.do(t, "GET", "http://proxy.test/api/proxy/acme/authorize?local_redirect_uri=http://app.test/done", "u-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// danceState corre el authorize y devuelve el state emitido.
func danceState(t *testing.T, f *fixture, target string) string {
	t.Helper()
	rec := f.do(t, "GET", target, "u-1", nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	st := loc.Query().Get("state")
	require.NotEmpty(t, st)
	return st
}

func TestFullDance(t *testing.T) {
	f := newFixture(t, nil)
	st := danceState(t, f, "http://proxy.test/api/proxy/acme/authorize?local_redirect_uri=https://app.test/done")

	// el callback vuelve anónimo: la identidad sale del state
	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/callback?code=code-77&state="+url.QueryEscape(st), "", nil)
	require.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	require.Equal(t, "https://app.test/done", rec.Header().Get("Location"))
	require.Equal(t, []string{"code-77"}, f.code.codes)

	tok, err := f.repo.GetToken(context.Background(), "u-1", "acme")
	require.NoError(t, err)
	require.Equal(t, "at-dance", tok.AccessToken)
	require.Equal(t, "rt-dance", tok.RefreshToken)
}

func TestCallbackGarbageState(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/callback?code=code-77&state=basura", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	// el code jamás se canjeó y no quedó token
	require.Empty(t, f.code.codes)
	_, err := f.repo.GetToken(context.Background(), "u-1", "acme")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestCallbackStateSingleUse(t *testing.T) {
	f := newFixture(t, nil)
	st := danceState(t, f, "http://proxy.test/api/proxy/acme/authorize")

	target := "http://proxy.test/api/proxy/acme/callback?code=c&state=" + url.QueryEscape(st)
	rec := f.do(t, "GET", target, "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(t, "GET", target, "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallbackMissingCodeAndIdPError(t *testing.T) {
	f := newFixture(t, nil)
	st := danceState(t, f, "http://proxy.test/api/proxy/acme/authorize")

	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/callback?state="+url.QueryEscape(st), "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "GET", "http://proxy.test/api/proxy/acme/callback?error=access_denied&error_description=nope", "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "access_denied")
}

func TestCallbackWithoutRedirectReturnsJSON(t *testing.T) {
	f := newFixture(t, nil)
	st := danceState(t, f, "http://proxy.test/api/proxy/acme/authorize")

	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/callback?code=c&state="+url.QueryEscape(st), "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "acme", body["connected"])
	require.Contains(t, body["message"], "successful")
}

func TestCallbackExchangeFailureIsBadRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.code.err = errors.New("idp rechazó el code")
	st := danceState(t, f, "http://proxy.test/api/proxy/acme/authorize")

	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/callback?code=c&state="+url.QueryEscape(st), "", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "exchange_failed")
	// nada quedó persistido
	_, err := f.repo.GetToken(context.Background(), "u-1", "acme")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestAuthorizeDisabledStateRejectsRedirectParam(t *testing.T) {
	f := newFixture(t, func(pc *provider.Config) { pc.DisableStateValidation = true })

	// sin state el destino local no llega al callback: se rechaza
	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/authorize?local_redirect_uri=https://app.test/done", "u-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "invalid_redirect")

	// sin destino local el authorize sigue andando, y sin state en la URL
	rec = f.do(t, "GET", "http://proxy.test/api/proxy/acme/authorize", "u-1", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Empty(t, loc.Query().Get("state"))
}

func TestCallbackDisabledStateUsesRequestUser(t *testing.T) {
	f := newFixture(t, func(pc *provider.Config) { pc.DisableStateValidation = true })

	// anónimo: sin state no hay de dónde sacar identidad
	rec := f.do(t, "GET", "http://proxy.test/api/proxy/acme/callback?code=c", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, "GET", "http://proxy.test/api/proxy/acme/callback?code=c", "u-9", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tok, err := f.repo.GetToken(context.Background(), "u-9", "acme")
	require.NoError(t, err)
	require.Equal(t, "at-dance", tok.AccessToken)
}

func TestConnectedAndTokenDelete(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.repo.UpsertToken(context.Background(), &core.UserToken{
		UserID: "u-1", Provider: "acme",
		AccessToken: "at", ExpiresAt: time.Now().Add(time.Hour),
	}))

	rec := f.do(t, "GET", "http://proxy.test/api/proxy/connected", "u-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []string{"acme"}, body["connected"])

	// el nombre del path se normaliza igual que en el registro
	rec = f.do(t, "DELETE", "http://proxy.test/api/proxy/Acme/token", "u-1", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	// segunda vez: ya no hay token
	rec = f.do(t, "DELETE", "http://proxy.test/api/proxy/acme/token", "u-1", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, "GET", "http://proxy.test/api/proxy/connected", "u-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Empty(t, body["connected"])
}

func TestHealthEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, "GET", "http://proxy.test/healthz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, "GET", "http://proxy.test/readyz", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ready":true`)
}
