package provider

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/dropDatabas3/proxyjohn/internal/observability/logger"
)

// Registry mapea nombre de provider -> Bundle. El lookup falla cerrado con
// ErrNotConfigured; registrar dos veces el mismo nombre falla
// ErrAlreadyConfigured. Read-mostly: se puebla al arrancar.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Bundle
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]*Bundle)}
}

// Option ajusta el wiring default de un provider al registrarlo
// (strategy por overrides nombrados, no por herencia).
type Option func(*Bundle)

// WithURLProvider reemplaza el armador de authorize URL.
func WithURLProvider(p URLProvider) Option {
	return func(b *Bundle) { b.URLs = p }
}

// WithCodeExchanger reemplaza el exchanger de authorization code.
func WithCodeExchanger(e CodeExchanger) Option {
	return func(b *Bundle) { b.Codes = e }
}

// WithRefreshExchanger reemplaza el exchanger de refresh token.
func WithRefreshExchanger(e RefreshExchanger) Option {
	return func(b *Bundle) { b.Refresh = e }
}

// WithCredentialsExchanger reemplaza el exchanger de client credentials.
func WithCredentialsExchanger(e CredentialsExchanger) Option {
	return func(b *Bundle) { b.Credentials = e }
}

// WithOutboundMiddleware agrega un decorador a la cadena saliente del
// provider. Se aplican en orden de registro.
func WithOutboundMiddleware(mw OutboundMiddleware) Option {
	return func(b *Bundle) { b.Outbound = append(b.Outbound, mw) }
}

// WithHTTPClient reemplaza el client saliente (tests).
func WithHTTPClient(c *http.Client) Option {
	return func(b *Bundle) { b.Client = c }
}

// Register valida la config, arma el wiring default del flow y guarda el
// bundle bajo su nombre.
func (r *Registry) Register(cfg Config, flow Flow, opts ...Option) error {
	if err := cfg.Validate(flow); err != nil {
		return err
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	cfg.Name = name
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}

	b := &Bundle{
		Config: cfg,
		Flow:   flow,
		Client: &http.Client{Timeout: cfg.HTTPTimeout},
	}

	// Wiring default por flow; los Options pueden pisarlo.
	switch flow {
	case FlowAuthorizationCode:
		b.URLs = &codeFlowURLProvider{}
		b.Codes = &codeFlowExchanger{client: b.Client}
		b.Refresh = &refreshExchanger{client: b.Client}
	case FlowClientCredentials:
		b.Credentials = &credentialsExchanger{client: b.Client}
	case FlowCustom:
		// todo viene por Options
	}

	for _, opt := range opts {
		opt(b)
	}

	if flow == FlowCustom && b.Codes == nil && b.Credentials == nil {
		return fmt.Errorf("%w: custom flow sin exchanger", ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyConfigured, name)
	}
	r.providers[name] = b

	logger.Named("registry").Info("provider registrado",
		logger.Provider(name),
		logger.String("flow", string(flow)),
		logger.Int("outbound_middlewares", len(b.Outbound)),
	)
	return nil
}

// Resolve devuelve el bundle del provider o ErrNotConfigured.
func (r *Registry) Resolve(name string) (*Bundle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.providers[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
	return b, nil
}

// Names lista los providers registrados, ordenados.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.providers))
	for n := range r.providers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
