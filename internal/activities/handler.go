package activities

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coincraft/coincraft/internal/platform/httpx"
)

// Handler exposes module completion endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler membuat instance handler activities baru.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/activities", h.list)
	r.Post("/modules/{id}/complete", h.complete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	progress, err := h.service.Progress(r.Context(), actor)
	if err != nil {
		httpx.LogError(h.logger, err)
		httpx.RespondError(w, err)
		return
	}
	if progress == nil {
		progress = []Progress{}
	}
	httpx.JSON(w, http.StatusOK, progress)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input CompleteInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Complete(r.Context(), actor, id, input)
	if err != nil {
		httpx.LogError(h.logger, err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}
