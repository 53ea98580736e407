package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"visahunt-engine/internal/logger"
)

func NewRouter(d Deps) http.Handler {
	log := d.Log.With(logger.Component("http"))

	r := chi.NewRouter()
	r.Use(RequestID, Recover(log), AccessLog(log), Cors)

	r.Get("/health", HealthHandler{Store: d.Store, Hub: d.Hub}.Health)
	r.Get("/config", ConfigHandler{Config: d.Config}.Get)
	r.Put("/secrets/{name}", SecretsHandler{}.Set)

	jh := JobsHandler{Store: d.Store}
	r.Get("/jobs", jh.List)
	r.Get("/jobs/{id}", jh.Get)

	rh := RunsHandler{Store: d.Store, Runner: d.Runner, RunCtx: d.RunCtx, Log: log}
	r.Get("/runs", rh.List)
	r.Post("/runs", rh.Trigger)
	r.Get("/runs/status", rh.Status)

	r.Get("/events", EventsHandler{Hub: d.Hub}.ServeSSE)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	return r
}
