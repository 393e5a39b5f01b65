// Package provider define la configuración por proveedor OAuth y el registro
// que ata cada nombre a su estrategia de flujo (authorization-code,
// client-credentials o custom).
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Flow identifica la estrategia de grant atada a un provider.
type Flow string

const (
	FlowAuthorizationCode Flow = "authorization_code"
	FlowClientCredentials Flow = "client_credentials"
	FlowCustom            Flow = "custom"
)

const DefaultHTTPTimeout = 30 * time.Second

var (
	ErrNotConfigured     = errors.New("provider not configured")
	ErrAlreadyConfigured = errors.New("provider already configured")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrExchangeFailed    = errors.New("token exchange failed")
)

// Config es la configuración estática de un provider. Inmutable después de
// registrarse: el registry guarda una copia y nunca la vuelve a tocar.
type Config struct {
	Name              string
	ClientID          string
	ClientSecret      string
	TokenEndpoint     string
	AuthorizeEndpoint string // solo code flow
	APIBaseURL        string
	Scopes            []string

	// AllowHTTPRedirects habilita http:// en los redirects locales (dev).
	AllowHTTPRedirects bool
	// TokenExpirationDays es el fallback de expiración cuando el token
	// endpoint no manda expires_in (client-credentials). 0 = sin fallback.
	TokenExpirationDays int
	// DisableStateValidation omite el codec de state en el dance: la
	// identidad se resuelve en el callback con el user id actual.
	DisableStateValidation bool
	// HTTPTimeout limita cada llamada saliente de este provider.
	HTTPTimeout time.Duration
}

// Validate es la segunda fase de la construcción: una Config se arma
// mutable y recién acá se rechazan las incompletas.
func (c *Config) Validate(flow Flow) error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: provider name vacío", ErrInvalidArgument)
	}
	switch flow {
	case FlowAuthorizationCode:
		if c.AuthorizeEndpoint == "" {
			return fmt.Errorf("%w: authorize_endpoint requerido para code flow", ErrInvalidArgument)
		}
		if c.TokenEndpoint == "" {
			return fmt.Errorf("%w: token_endpoint requerido para code flow", ErrInvalidArgument)
		}
	case FlowClientCredentials:
		if c.TokenEndpoint == "" {
			return fmt.Errorf("%w: token_endpoint requerido para client credentials", ErrInvalidArgument)
		}
	case FlowCustom:
		// el caller provee sus propios exchangers; nada que validar acá
	default:
		return fmt.Errorf("%w: flow desconocido %q", ErrInvalidArgument, flow)
	}
	return nil
}

// TokenResult es la forma normalizada de cualquier exchange.
type TokenResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// URLProvider arma la URL de autorización del tercero. La implementación
// default NO embebe state: el codec lo agrega por encima.
type URLProvider interface {
	AuthorizeURL(cfg Config, redirectURI string) (string, error)
}

// CodeExchanger canjea el authorization code por tokens.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, cfg Config, code string) (*TokenResult, error)
}

// RefreshExchanger canjea un refresh token (solo code flow).
type RefreshExchanger interface {
	ExchangeRefreshToken(ctx context.Context, cfg Config, refreshToken string) (*TokenResult, error)
}

// CredentialsExchanger obtiene un token de máquina (client-credentials).
type CredentialsExchanger interface {
	ExchangeToken(ctx context.Context, cfg Config) (*TokenResult, error)
}

// OutboundMiddleware decora el transporte saliente de un provider.
// Se aplican en orden de registro; cada cadena es independiente por provider.
type OutboundMiddleware func(http.RoundTripper) http.RoundTripper

// Bundle es el set resuelto de un provider: config + estrategia atada.
type Bundle struct {
	Config Config
	Flow   Flow

	URLs        URLProvider          // code flow
	Codes       CodeExchanger        // code flow
	Refresh     RefreshExchanger     // code flow
	Credentials CredentialsExchanger // client-credentials flow

	// Client es el http.Client saliente del provider (timeout propio).
	Client *http.Client
	// Outbound son los middlewares extra de la cadena saliente.
	Outbound []OutboundMiddleware
}
