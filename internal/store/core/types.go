package core

import "time"

// UserToken es la fila viva por (UserID, Provider). Upsert por clave:
// se crea en el primer exchange y se pisa en cada refresh/re-exchange.
// La expiración es un filtro de lectura, nunca un tombstone.
type UserToken struct {
	UserID       string
	Provider     string
	AccessToken  string
	RefreshToken string // vacío para client-credentials
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired informa si el token ya no sirve para llamadas salientes.
func (t *UserToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}

// AuthState es la fila efímera del codec signed-record: protege el
// round-trip authorize -> callback. Clave (StateID, Provider); a lo sumo
// una fila viva por (UserID, Provider). Single-use: se borra al validar.
type AuthState struct {
	StateID   string
	Provider  string
	UserID    string
	Secret    string // 256 bits, base64url; nunca viaja al navegador
	ExpiresAt time.Time
	CreatedAt time.Time
}

// PendingRedirect guarda el destino local post-autorización, claveado por
// el state. Se consume (lee + borra) exactamente una vez en el callback.
type PendingRedirect struct {
	AuthState        string
	LocalRedirectURL string
	CreatedAt        time.Time
}
