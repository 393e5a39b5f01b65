package identity

import "net/http"

// DefaultDevHeader es el header del provider de desarrollo.
const DefaultDevHeader = "X-User-Id"

// HeaderProvider toma el user id de un header de confianza. Solo para
// entornos de desarrollo o detrás de un gateway que ya autenticó.
type HeaderProvider struct {
	Header string
}

var _ UserIDProvider = (*HeaderProvider)(nil)

func (p *HeaderProvider) UserID(r *http.Request) (string, error) {
	h := p.Header
	if h == "" {
		h = DefaultDevHeader
	}
	v := r.Header.Get(h)
	if v == "" {
		return "", ErrNoUser
	}
	return v, nil
}
