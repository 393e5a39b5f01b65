// Package app arma el contenedor del proxy: traduce la config cruda a
// registry, store, codec, builder y router listos para servir.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/proxyjohn/internal/config"
	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/http/handlers"
	"github.com/dropDatabas3/proxyjohn/internal/http/middlewares"
	"github.com/dropDatabas3/proxyjohn/internal/identity"
	"github.com/dropDatabas3/proxyjohn/internal/metrics"
	"github.com/dropDatabas3/proxyjohn/internal/provider"
	"github.com/dropDatabas3/proxyjohn/internal/proxy"
	"github.com/dropDatabas3/proxyjohn/internal/rate"
	"github.com/dropDatabas3/proxyjohn/internal/state"
	"github.com/dropDatabas3/proxyjohn/internal/store/core"
	"github.com/dropDatabas3/proxyjohn/internal/store/memory"
	"github.com/dropDatabas3/proxyjohn/internal/store/pg"
	"github.com/dropDatabas3/proxyjohn/internal/token"
)

type Container struct {
	Cfg      *config.Config
	Store    core.Repository
	Registry *provider.Registry
	Builder  *token.Builder
	Codec    state.Codec
	Identity identity.UserIDProvider
	Limiter  rate.Limiter // nil si rate.enabled = false
}

// New levanta todas las dependencias según la config. El caller es dueño
// de cerrar el store.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Cfg: cfg}

	switch cfg.Storage.Driver {
	case "memory":
		c.Store = memory.New()
	case "postgres":
		st, err := pg.New(ctx, cfg.Storage.DSN, pg.Config{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("conectando a postgres: %w", err)
		}
		c.Store = st
	default:
		return nil, fmt.Errorf("driver desconocido: %q", cfg.Storage.Driver)
	}

	c.Registry = provider.NewRegistry()
	for name, p := range cfg.Providers {
		pc := provider.Config{
			Name:                   name,
			ClientID:               p.ClientID,
			ClientSecret:           p.ClientSecret,
			AuthorizeEndpoint:      p.AuthorizeEndpoint,
			TokenEndpoint:          p.TokenEndpoint,
			APIBaseURL:             p.APIBaseURL,
			Scopes:                 p.Scopes,
			AllowHTTPRedirects:     p.AllowHTTPRedirects,
			TokenExpirationDays:    p.TokenExpirationDays,
			DisableStateValidation: p.DisableStateValidation,
			HTTPTimeout:            cfg.HTTPTimeout(p),
		}
		flow, err := parseFlow(p.Flow)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
		if err := c.Registry.Register(pc, flow); err != nil {
			return nil, fmt.Errorf("provider %s: %w", name, err)
		}
	}

	var opts []token.Option
	if cfg.Proxy.CoordinateRefresh {
		opts = append(opts, token.WithCoordinatedRefresh())
	}
	c.Builder = token.NewBuilder(c.Registry, c.Store, opts...)

	switch cfg.Proxy.StateCodec {
	case "sealed":
		c.Codec = state.NewSealedCodec()
	default:
		c.Codec = state.NewSignedCodec(c.Store)
	}

	switch cfg.Identity.Mode {
	case "header":
		c.Identity = &identity.HeaderProvider{Header: cfg.Identity.Header}
	default:
		c.Identity = identity.NewJWTProvider([]byte(cfg.Identity.JWTSecret), cfg.Identity.Issuer, cfg.Identity.Audience)
	}

	if cfg.Rate.Enabled {
		switch cfg.Rate.Backend {
		case "redis":
			client := rdb.NewClient(&rdb.Options{Addr: cfg.Rate.Redis.Addr, DB: cfg.Rate.Redis.DB})
			c.Limiter = rate.NewRedisLimiter(client, cfg.Rate.Redis.Prefix, cfg.Rate.MaxRequests, cfg.RateWindow())
		default:
			c.Limiter = rate.NewMemoryLimiter(cfg.Rate.MaxRequests, cfg.RateWindow())
		}
	}

	if err := metrics.RegisterOAuth(nil); err != nil {
		return nil, fmt.Errorf("registrando métricas: %w", err)
	}
	return c, nil
}

func parseFlow(s string) (provider.Flow, error) {
	switch s {
	case "", string(provider.FlowAuthorizationCode):
		return provider.FlowAuthorizationCode, nil
	case string(provider.FlowClientCredentials):
		return provider.FlowClientCredentials, nil
	case string(provider.FlowCustom):
		return provider.FlowCustom, nil
	default:
		return "", fmt.Errorf("flow desconocido: %q", s)
	}
}

// OutboundClient arma (y cachea por bundle) el cliente saliente de un
// provider con el bearer inyectado.
func (c *Container) OutboundClient(name string) (*http.Client, error) {
	bundle, err := c.Registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	return proxy.NewClient(bundle, c.Builder), nil
}

// Router arma el handler HTTP completo del proxy.
func (c *Container) Router() http.Handler {
	d := handlers.Deps{
		Registry:             c.Registry,
		Repo:                 c.Store,
		Builder:              c.Builder,
		Codec:                c.Codec,
		WhitelistedRedirects: c.Cfg.Proxy.WhitelistedURLs,
		RedirectParam:        c.Cfg.Proxy.RedirectQueryParam,
		AllowHTTPRedirects:   c.Cfg.Proxy.AllowHTTPRedirects,
	}

	base := []middlewares.Middleware{
		middlewares.WithRequestID(),
		middlewares.WithUser(c.Identity),
		middlewares.WithLogging(),
	}
	danceMws := base
	if c.Limiter != nil {
		danceMws = append(append([]middlewares.Middleware{}, base...), middlewares.WithRateLimit(c.Limiter))
	}

	h := httpx.Handlers{
		Authorize:   middlewares.ChainFunc(handlers.NewAuthorizeHandler(d), danceMws...),
		Callback:    middlewares.ChainFunc(handlers.NewCallbackHandler(d), danceMws...),
		Connected:   middlewares.ChainFunc(handlers.NewConnectedHandler(d), base...),
		TokenDelete: middlewares.ChainFunc(handlers.NewTokenDeleteHandler(d), base...),
		Healthz:     handlers.NewHealthzHandler(),
		Readyz:      handlers.NewReadyzHandler(c.Store, c.Cfg.Proxy.StateCodec == "sealed"),
		Metrics:     promhttp.Handler(),
	}
	if c.Cfg.Proxy.MapGenericAPI {
		h.Passthrough = middlewares.ChainFunc(handlers.NewPassthroughHandler(d, c.OutboundClient), base...)
	}

	mux := httpx.NewMux(c.Cfg.Proxy.URLPrefix, h)
	if len(c.Cfg.Server.CORSAllowedOrigins) > 0 {
		return httpx.WithCORS(mux, c.Cfg.Server.CORSAllowedOrigins)
	}
	return mux
}

// Close libera recursos del contenedor.
func (c *Container) Close() {
	if c.Store != nil {
		c.Store.Close()
	}
}
