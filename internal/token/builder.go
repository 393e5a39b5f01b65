// Package token resuelve el access token vigente de un (usuario, provider):
// devuelve el guardado si está fresco, lo renueva si hay refresh token, o
// ejecuta el grant de máquina cuando el flow es client-credentials.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/proxyjohn/internal/metrics"
	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
	"github.com/dropDatabas3/proxyjohn/internal/provider"
	"github.com/dropDatabas3/proxyjohn/internal/store/core"
	"github.com/dropDatabas3/proxyjohn/internal/util"
)

// Builder arma access tokens listos para usar contra la API del provider.
type Builder struct {
	registry *provider.Registry
	repo     core.Repository
	now      func() time.Time

	// coordinate colapsa refreshes concurrentes del mismo
	// (usuario, provider) en una sola llamada saliente. Off por default:
	// el peor caso sin coordinación es un refresh duplicado inocuo.
	coordinate bool
	group      singleflight.Group
}

type Option func(*Builder)

// WithCoordinatedRefresh activa el colapso de refreshes concurrentes.
func WithCoordinatedRefresh() Option {
	return func(b *Builder) { b.coordinate = true }
}

func NewBuilder(reg *provider.Registry, repo core.Repository, opts ...Option) *Builder {
	b := &Builder{registry: reg, repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AccessToken devuelve un access token vigente para (userID, providerName).
// Todo fallo es un *Error con su Kind para que el borde HTTP lo traduzca.
func (b *Builder) AccessToken(ctx context.Context, userID, providerName string) (string, error) {
	bundle, err := b.registry.Resolve(providerName)
	if err != nil {
		return "", fail(KindBadRequest, providerName, err)
	}
	name := bundle.Config.Name

	if !b.coordinate {
		return b.resolve(ctx, userID, bundle)
	}
	v, err, _ := b.group.Do(name+"|"+userID, func() (any, error) {
		return b.resolve(ctx, userID, bundle)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *Builder) resolve(ctx context.Context, userID string, bundle *provider.Bundle) (string, error) {
	name := bundle.Config.Name
	now := b.now().UTC()

	stored, err := b.repo.GetToken(ctx, userID, name)
	switch {
	case err == nil:
		if !stored.Expired(now) {
			metrics.TokensBuilt.WithLabelValues(name, "fresh").Inc()
			return stored.AccessToken, nil
		}
	case errors.Is(err, core.ErrNotFound):
		stored = nil
	default:
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindInternal, name, fmt.Errorf("leyendo token: %w", err))
	}

	if bundle.Credentials != nil {
		return b.machineToken(ctx, userID, bundle)
	}
	return b.refreshedToken(ctx, userID, bundle, stored)
}

// refreshedToken cubre el camino code flow: sin token o sin refresh token
// no hay nada que hacer salvo mandar al usuario de vuelta al dance.
func (b *Builder) refreshedToken(ctx context.Context, userID string, bundle *provider.Bundle, stored *core.UserToken) (string, error) {
	name := bundle.Config.Name
	if stored == nil {
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindUnauthorized, name, errors.New("sin token guardado"))
	}
	if stored.RefreshToken == "" {
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindUnauthorized, name, errors.New("token vencido sin refresh token"))
	}
	if bundle.Refresh == nil {
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindInternal, name, errors.New("flow sin refresh exchanger"))
	}

	start := b.now()
	res, err := bundle.Refresh.ExchangeRefreshToken(ctx, bundle.Config, stored.RefreshToken)
	metrics.ExchangeLatency.WithLabelValues(name, "refresh_token").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues(name, "refresh_token").Inc()
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindInternal, name, fmt.Errorf("renovando token: %w", err))
	}
	// Un exchanger que devuelve nil, o 2xx sin access token, equivale a
	// un refresh fallido: el usuario vuelve al dance.
	if res == nil {
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindUnauthorized, name, errors.New("refresh devolvió resultado nil"))
	}
	if res.AccessToken == "" {
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindUnauthorized, name, errors.New("refresh devolvió 2xx sin access token"))
	}

	if err := b.persist(ctx, userID, name, res); err != nil {
		return "", err
	}
	metrics.TokensRefreshed.WithLabelValues(name).Inc()
	metrics.TokensBuilt.WithLabelValues(name, "refreshed").Inc()
	logger.Named("token").Info("access token renovado",
		logger.Provider(name),
		logger.UserID(userID),
		logger.String("access_token", util.MaskToken(res.AccessToken)),
		logger.ExpiresAt(res.ExpiresAt),
	)
	return res.AccessToken, nil
}

// machineToken cubre client-credentials: no hay usuario final en el grant,
// pero el token se guarda igual bajo el userID que lo pidió para cachearlo.
func (b *Builder) machineToken(ctx context.Context, userID string, bundle *provider.Bundle) (string, error) {
	name := bundle.Config.Name

	start := b.now()
	res, err := bundle.Credentials.ExchangeToken(ctx, bundle.Config)
	metrics.ExchangeLatency.WithLabelValues(name, "client_credentials").Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.ExchangeErrors.WithLabelValues(name, "client_credentials").Inc()
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindInternal, name, fmt.Errorf("exchange de credenciales: %w", err))
	}
	if res == nil {
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindUnauthorized, name, errors.New("exchange devolvió resultado nil"))
	}
	if res.AccessToken == "" {
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return "", fail(KindBadRequest, name, errors.New("exchange devolvió 2xx sin access token"))
	}

	if err := b.persist(ctx, userID, name, res); err != nil {
		return "", err
	}
	metrics.TokensBuilt.WithLabelValues(name, "exchanged").Inc()
	return res.AccessToken, nil
}

// Persist guarda el resultado de un exchange tal cual vino: el builder no
// recorta ni renombra nada de lo que devolvió el tercero.
func (b *Builder) persist(ctx context.Context, userID, name string, res *provider.TokenResult) error {
	now := b.now().UTC()
	err := b.repo.UpsertToken(ctx, &core.UserToken{
		UserID:       userID,
		Provider:     name,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		metrics.TokensBuilt.WithLabelValues(name, "failed").Inc()
		return fail(KindInternal, name, fmt.Errorf("guardando token: %w", err))
	}
	return nil
}

// Store persiste un resultado de exchange fuera del builder (callback del
// dance). Mismo camino de escritura que los refreshes.
func (b *Builder) Store(ctx context.Context, userID, providerName string, res *provider.TokenResult) error {
	bundle, err := b.registry.Resolve(providerName)
	if err != nil {
		return fail(KindBadRequest, providerName, err)
	}
	return b.persist(ctx, userID, bundle.Config.Name, res)
}
