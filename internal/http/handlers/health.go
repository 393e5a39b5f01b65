package handlers

import (
	"net/http"

	httpx "github.com/dropDatabas3/proxyjohn/internal/http"
	"github.com/dropDatabas3/proxyjohn/internal/security/secretbox"
	"github.com/dropDatabas3/proxyjohn/internal/store/core"
)

// NewHealthzHandler: vivo o no, nada más.
func NewHealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NewReadyzHandler verifica las dependencias: el store responde y la
// clave del secretbox está cargada (sin ella no hay codec sellado).
func NewReadyzHandler(repo core.Repository, needSecretbox bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{"store": "ok"}
		healthy := true

		if err := repo.Ping(r.Context()); err != nil {
			checks["store"] = err.Error()
			healthy = false
		}
		if needSecretbox {
			checks["secretbox"] = "ok"
			if !secretbox.Ready() {
				checks["secretbox"] = "clave maestra no cargada"
				healthy = false
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, status, map[string]any{"ready": healthy, "checks": checks})
	}
}
