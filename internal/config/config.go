package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	} `yaml:"server"`

	Storage struct {
		Driver   string `yaml:"driver"` // postgres | memory
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	// Identidad del host: cómo se resuelve el usuario dueño del request.
	Identity struct {
		Mode      string `yaml:"mode"` // jwt | header
		JWTSecret string `yaml:"jwt_secret"`
		Issuer    string `yaml:"issuer"`
		Audience  string `yaml:"audience"`
		Header    string `yaml:"header"` // para mode: header
	} `yaml:"identity"`

	Proxy struct {
		URLPrefix          string   `yaml:"url_prefix"`           // default /api/proxy
		RedirectQueryParam string   `yaml:"redirect_query_param"` // default local_redirect_uri
		StateCodec         string   `yaml:"state_codec"`          // signed | sealed
		CoordinateRefresh  bool     `yaml:"coordinate_refresh"`
		MapGenericAPI      bool     `yaml:"map_generic_api"`
		AllowHTTPRedirects bool     `yaml:"allow_http_redirects"`
		WhitelistedURLs    []string `yaml:"whitelisted_redirect_urls"`
		HTTPTimeoutSeconds int      `yaml:"http_client_timeout_seconds"`
	} `yaml:"proxy"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Backend     string `yaml:"backend"` // memory | redis
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
		Redis       struct {
			Addr   string `yaml:"addr"`
			DB     int    `yaml:"db"`
			Prefix string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"rate"`

	Security struct {
		SecretBoxMasterKey string `yaml:"secretbox_master_key"` // base64(32 bytes); mejor por env
	} `yaml:"security"`

	// Providers OAuth downstream, por nombre.
	Providers map[string]Provider `yaml:"providers"`
}

// Provider es la config cruda de un provider en YAML; el registro la
// traduce y valida al arrancar.
type Provider struct {
	Flow                   string   `yaml:"flow"` // authorization_code | client_credentials
	ClientID               string   `yaml:"client_id"`
	ClientSecret           string   `yaml:"client_secret"`
	AuthorizeEndpoint      string   `yaml:"authorize_endpoint"`
	TokenEndpoint          string   `yaml:"token_endpoint"`
	APIBaseURL             string   `yaml:"api_base_url"`
	Scopes                 []string `yaml:"scopes"`
	TokenExpirationDays    int      `yaml:"token_expiration_days"`
	DisableStateValidation bool     `yaml:"disable_state_validation"`
	AllowHTTPRedirects     bool     `yaml:"allow_http_redirects"`
	HTTPTimeoutSeconds     int      `yaml:"http_timeout_seconds"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	c.applyEnvOverrides()
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "postgres"
	}
	if c.Identity.Mode == "" {
		c.Identity.Mode = "jwt"
	}
	if c.Proxy.URLPrefix == "" {
		c.Proxy.URLPrefix = "/api/proxy"
	}
	if c.Proxy.RedirectQueryParam == "" {
		c.Proxy.RedirectQueryParam = "local_redirect_uri"
	}
	if c.Proxy.StateCodec == "" {
		c.Proxy.StateCodec = "signed"
	}
	if c.Proxy.HTTPTimeoutSeconds == 0 {
		c.Proxy.HTTPTimeoutSeconds = 30
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 60
	}
	if c.Rate.Backend == "" {
		c.Rate.Backend = "memory"
	}
}

// Overrides por entorno: secretos y direcciones nunca deberían vivir en
// el YAML commiteado.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PROXY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("IDENTITY_JWT_SECRET"); v != "" {
		c.Identity.JWTSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Rate.Redis.Addr = v
	}
	if v := os.Getenv("SECRETBOX_MASTER_KEY"); v != "" {
		c.Security.SecretBoxMasterKey = v
	}
	// secrets por provider: PROVIDER_<NOMBRE>_CLIENT_SECRET
	for name, p := range c.Providers {
		key := "PROVIDER_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_CLIENT_SECRET"
		if v := os.Getenv(key); v != "" {
			p.ClientSecret = v
			c.Providers[name] = p
		}
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("storage.driver inválido: %q", c.Storage.Driver)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn requerido con driver postgres")
	}
	switch c.Proxy.StateCodec {
	case "signed", "sealed":
	default:
		return fmt.Errorf("proxy.state_codec inválido: %q (signed|sealed)", c.Proxy.StateCodec)
	}
	switch c.Identity.Mode {
	case "jwt":
		if c.Identity.JWTSecret == "" {
			return fmt.Errorf("identity.jwt_secret requerido con mode jwt")
		}
	case "header":
	default:
		return fmt.Errorf("identity.mode inválido: %q (jwt|header)", c.Identity.Mode)
	}
	if c.Proxy.StateCodec == "sealed" && c.Security.SecretBoxMasterKey == "" && os.Getenv("SECRETBOX_MASTER_KEY") == "" {
		return fmt.Errorf("state_codec sealed necesita SECRETBOX_MASTER_KEY")
	}
	if len(c.Providers) == 0 {
		return fmt.Errorf("sin providers configurados")
	}
	return nil
}

// RateWindow parsea la ventana del limiter ("1m", "30s").
func (c *Config) RateWindow() time.Duration {
	d, err := time.ParseDuration(c.Rate.Window)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// HTTPTimeout devuelve el timeout saliente de un provider, con el global
// como fallback.
func (c *Config) HTTPTimeout(p Provider) time.Duration {
	secs := p.HTTPTimeoutSeconds
	if secs <= 0 {
		secs = c.Proxy.HTTPTimeoutSeconds
	}
	return time.Duration(secs) * time.Second
}

// Env helpers estilo bool/int con default (para flags sueltos).
func EnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
