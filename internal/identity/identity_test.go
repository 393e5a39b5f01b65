package identity

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("clave-de-test-no-usar-en-serio!!")

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("firmando token: %v", err)
	}
	return s
}

func TestJWTProviderHappyPath(t *testing.T) {
	p := NewJWTProvider(testSecret, "", "")
	raw := signToken(t, jwt.MapClaims{
		"sub": "u-42",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+raw)

	got, err := p.UserID(r)
	if err != nil {
		t.Fatalf("UserID: %v", err)
	}
	if got != "u-42" {
		t.Fatalf("UserID = %q", got)
	}
}

func TestJWTProviderRejects(t *testing.T) {
	p := NewJWTProvider(testSecret, "hostapp", "")
	cases := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{"sin header", func(t *testing.T) string { return "" }},
		{"esquema equivocado", func(t *testing.T) string { return "Basic abc" }},
		{"firma ajena", func(t *testing.T) string {
			tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u", "iss": "hostapp"})
			s, _ := tok.SignedString([]byte("otra-clave-distinta-aca-tambien!"))
			return "Bearer " + s
		}},
		{"vencido", func(t *testing.T) string {
			return "Bearer " + signToken(t, jwt.MapClaims{
				"sub": "u", "iss": "hostapp", "exp": time.Now().Add(-time.Hour).Unix(),
			})
		}},
		{"issuer equivocado", func(t *testing.T) string {
			return "Bearer " + signToken(t, jwt.MapClaims{
				"sub": "u", "iss": "intruso", "exp": time.Now().Add(time.Hour).Unix(),
			})
		}},
		{"sin sub", func(t *testing.T) string {
			return "Bearer " + signToken(t, jwt.MapClaims{
				"iss": "hostapp", "exp": time.Now().Add(time.Hour).Unix(),
			})
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if h := tc.setup(t); h != "" {
				r.Header.Set("Authorization", h)
			}
			if _, err := p.UserID(r); !errors.Is(err, ErrNoUser) {
				t.Fatalf("err = %v, quería ErrNoUser", err)
			}
		})
	}
}

func TestHeaderProvider(t *testing.T) {
	p := &HeaderProvider{}
	r := httptest.NewRequest("GET", "/", nil)
	if _, err := p.UserID(r); !errors.Is(err, ErrNoUser) {
		t.Fatalf("err = %v, quería ErrNoUser", err)
	}
	r.Header.Set(DefaultDevHeader, "dev-user")
	got, err := p.UserID(r)
	if err != nil || got != "dev-user" {
		t.Fatalf("UserID = %q, %v", got, err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "u-7")
	got, ok := FromContext(ctx)
	if !ok || got != "u-7" {
		t.Fatalf("FromContext = %q, %v", got, ok)
	}
	if _, ok := FromContext(context.Background()); ok {
		t.Fatalf("contexto vacío no debería tener usuario")
	}
}
