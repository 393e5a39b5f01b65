package identity

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTProvider valida el bearer token del host y usa el claim `sub` como
// user id. La clave es la del emisor de sesiones del host, no la de
// ningún provider OAuth downstream.
type JWTProvider struct {
	secret   []byte
	issuer   string // opcional; si está, se exige
	audience string // opcional; si está, se exige
}

func NewJWTProvider(secret []byte, issuer, audience string) *JWTProvider {
	return &JWTProvider{secret: secret, issuer: issuer, audience: audience}
}

var _ UserIDProvider = (*JWTProvider)(nil)

func (p *JWTProvider) UserID(r *http.Request) (string, error) {
	raw := bearerToken(r)
	if raw == "" {
		return "", ErrNoUser
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	if p.audience != "" {
		opts = append(opts, jwt.WithAudience(p.audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return p.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoUser, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", ErrNoUser
	}
	return sub, nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
