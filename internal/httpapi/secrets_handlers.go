package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"visahunt-engine/internal/secrets"
)

type SecretsHandler struct{}

type setSecretReq struct {
	Value string `json:"value"`
}

func (SecretsHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req setSecretReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, CodeInvalidJSON, "invalid json")
		return
	}
	if err := secrets.Set(chi.URLParam(r, "name"), req.Value); err != nil {
		WriteError(w, r, CodeSecretNotStored, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
