package provider

import (
	"errors"
	"testing"
)

func validCodeConfig() Config {
	return Config{
		Name:              "Acme",
		ClientID:          "cid",
		ClientSecret:      "sec",
		AuthorizeEndpoint: "https://idp.acme.test/authorize",
		TokenEndpoint:     "https://idp.acme.test/token",
	}
}

func TestRegistryRegisterAndResolve(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(validCodeConfig(), FlowAuthorizationCode); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// lookup case-insensitive: se normaliza a minúsculas
	b, err := r.Resolve("ACME")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if b.Flow != FlowAuthorizationCode {
		t.Fatalf("flow = %q", b.Flow)
	}
	if b.URLs == nil || b.Codes == nil || b.Refresh == nil {
		t.Fatalf("wiring default incompleto: %+v", b)
	}
	if b.Credentials != nil {
		t.Fatalf("code flow no debería tener credentials exchanger")
	}
}

func TestRegistryDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(validCodeConfig(), FlowAuthorizationCode); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := r.Register(validCodeConfig(), FlowAuthorizationCode)
	if !errors.Is(err, ErrAlreadyConfigured) {
		t.Fatalf("err = %v, quería ErrAlreadyConfigured", err)
	}
}

func TestRegistryUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Resolve("nadie"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, quería ErrNotConfigured", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		flow Flow
		ok   bool
	}{
		{"code completo", validCodeConfig(), FlowAuthorizationCode, true},
		{"code sin authorize", Config{Name: "x", TokenEndpoint: "https://t"}, FlowAuthorizationCode, false},
		{"code sin token", Config{Name: "x", AuthorizeEndpoint: "https://a"}, FlowAuthorizationCode, false},
		{"cc completo", Config{Name: "svc", TokenEndpoint: "https://t"}, FlowClientCredentials, true},
		{"cc sin token", Config{Name: "svc"}, FlowClientCredentials, false},
		{"sin nombre", Config{TokenEndpoint: "https://t"}, FlowClientCredentials, false},
		{"flow desconocido", validCodeConfig(), Flow("pkce"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate(tc.flow)
			if tc.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("err = %v, quería ErrInvalidArgument", err)
			}
		})
	}
}

func TestRegistryCustomRequiresExchanger(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Config{Name: "raro"}, FlowCustom)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, quería ErrInvalidArgument", err)
	}
}

func TestRegistryNames(t *testing.T) {
	r := NewRegistry()
	for _, n := range []string{"beta", "alfa"} {
		cfg := validCodeConfig()
		cfg.Name = n
		if err := r.Register(cfg, FlowAuthorizationCode); err != nil {
			t.Fatalf("Register(%s): %v", n, err)
		}
	}
	got := r.Names()
	if len(got) != 2 || got[0] != "alfa" || got[1] != "beta" {
		t.Fatalf("Names() = %v", got)
	}
}
