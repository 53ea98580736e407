package httpapi

import (
	"net/http"

	"visahunt-engine/internal/config"
)

// ConfigHandler exposes the effective configuration. Credentials live in
// the keychain and never appear here; a DSN may embed one, so it is masked.
type ConfigHandler struct {
	Config config.Config
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg := h.Config
	if cfg.Store.DSN != "" {
		cfg.Store.DSN = "redacted"
	}
	WriteJSON(w, http.StatusOK, cfg)
}
