package provider

import "context"

// Funcs adaptadores para registrar flows custom sin declarar un tipo.

type URLProviderFunc func(cfg Config, redirectURI string) (string, error)

func (f URLProviderFunc) AuthorizeURL(cfg Config, redirectURI string) (string, error) {
	return f(cfg, redirectURI)
}

type CodeExchangerFunc func(ctx context.Context, cfg Config, code string) (*TokenResult, error)

func (f CodeExchangerFunc) ExchangeCode(ctx context.Context, cfg Config, code string) (*TokenResult, error) {
	return f(ctx, cfg, code)
}

type RefreshExchangerFunc func(ctx context.Context, cfg Config, refreshToken string) (*TokenResult, error)

func (f RefreshExchangerFunc) ExchangeRefreshToken(ctx context.Context, cfg Config, refreshToken string) (*TokenResult, error) {
	return f(ctx, cfg, refreshToken)
}

type CredentialsExchangerFunc func(ctx context.Context, cfg Config) (*TokenResult, error)

func (f CredentialsExchangerFunc) ExchangeToken(ctx context.Context, cfg Config) (*TokenResult, error) {
	return f(ctx, cfg)
}
