package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"visahunt-engine/internal/domain"
)

type JobsHandler struct {
	Store JobReader
}

// List returns all records, or those in ?status=, oldest posting first.
func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		WriteJSON(w, http.StatusOK, h.Store.All())
		return
	}
	st, err := domain.ParseStatus(raw)
	if err != nil {
		WriteError(w, r, CodeInvalidStatus, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, h.Store.RecordsFor(st))
}

func (h JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.Store.Get(chi.URLParam(r, "id"))
	if !ok {
		WriteError(w, r, CodeNotFound, "job not found")
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}
