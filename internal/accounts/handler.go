package accounts

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/platform/httpx"
)

// Handler exposes account endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers account routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/accounts", h.register)
	r.Get("/accounts/me", h.me)
	r.Get("/accounts/me/children", h.children)
	r.Post("/accounts/me/children", h.linkChild)
	r.Get("/accounts/me/settings", h.settings)
	r.Put("/accounts/me/settings", h.updateSettings)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	acct, err := h.service.Register(r.Context(), RegisterInput{ActorID: actor.ID, Role: actor.Role})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, acct)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	acct, err := h.service.Get(r.Context(), actor.ID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) children(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	kids, err := h.service.Children(r.Context(), actor.ID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if kids == nil {
		kids = []Account{}
	}
	httpx.JSON(w, http.StatusOK, kids)
}

type linkRequest struct {
	ChildID uuid.UUID `json:"child_id"`
}

func (h *Handler) linkChild(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var req linkRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	child, err := h.service.LinkChild(r.Context(), actor, req.ChildID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, child)
}

func (h *Handler) settings(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	settings, err := h.service.Settings(r.Context(), actor.ID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var req SettingsInput
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), actor, req)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	httpx.LogError(h.logger, err)
	httpx.RespondError(w, err)
}
