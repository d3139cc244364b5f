package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func RegisterRoutes(mux *chi.Mux, h *Handlers) {
	mux.Get("/healthz", h.Health)
	mux.Get("/version", h.Version)
	mux.Handle("/metrics", promhttp.Handler())

	mux.Post("/api/chat", h.Chat)
	mux.Post("/api/transcribe", h.Transcribe)
	mux.Get("/api/models", h.ListModels)
	mux.Get("/api/history/{session_id}", h.GetHistory)

	if h.Admin != nil {
		mux.Post("/admin/models/pull", h.Admin.PullModel)
	}
}
