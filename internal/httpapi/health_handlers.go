package httpapi

import (
	"net/http"

	"visahunt-engine/internal/domain"
	"visahunt-engine/internal/events"
)

type HealthHandler struct {
	Store JobReader
	Hub   *events.Hub
}

func (h HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	counts := h.Store.Counts()
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"jobs": map[string]int{
			string(domain.StatusNotApplied): counts[domain.StatusNotApplied],
			string(domain.StatusApplied):    counts[domain.StatusApplied],
			string(domain.StatusFailed):     counts[domain.StatusFailed],
		},
		"events": map[string]any{
			"subscribers": h.subscribers(),
			"dropped":     h.Hub.Dropped(),
		},
	})
}

func (h HealthHandler) subscribers() int {
	if h.Hub == nil {
		return 0
	}
	return h.Hub.Subscribers()
}
