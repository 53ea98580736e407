package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"visahunt-engine/internal/logger"
)

type RunsHandler struct {
	Store  JobReader
	Runner RunTrigger
	RunCtx context.Context
	Log    logger.Logger
}

func (h RunsHandler) Status(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Runner.Status())
}

func (h RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.Store.Runs(r.Context(), limit)
	if err != nil {
		WriteError(w, r, CodeRunsUnavailable, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, runs)
}

// Trigger starts a run in the background and answers right away.
func (h RunsHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if h.Runner.Status().Running {
		WriteError(w, r, CodeAlreadyRunning, "a run is already in progress")
		return
	}

	ctx := h.RunCtx
	if ctx == nil {
		ctx = context.WithoutCancel(r.Context())
	}
	reqID := RequestIDFrom(r.Context())
	go func() {
		if _, ok := h.Runner.TryRun(ctx); !ok {
			h.Log.Info("run trigger ignored, already running", logger.String("request_id", reqID))
		}
	}()
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}
