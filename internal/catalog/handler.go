package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/coincraft/coincraft/internal/platform/httpx"
)

// Handler exposes catalog endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/items", h.listItems)
		r.Post("/items", h.createItem)
		r.Get("/items/{id}", h.getItem)
		r.Get("/modules", h.listModules)
		r.Post("/modules", h.createModule)
		r.Get("/owned", h.owned)
	})
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListItems(r.Context(), actor.Role.IsChild())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if items == nil {
		items = []ShopItem{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var input ItemInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.CreateItem(r.Context(), actor, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) listModules(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	modules, err := h.service.ListModules(r.Context(), actor.Role.IsChild())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if modules == nil {
		modules = []Module{}
	}
	httpx.JSON(w, http.StatusOK, modules)
}

func (h *Handler) createModule(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var input ModuleInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.CreateModule(r.Context(), actor, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) owned(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	items, err := h.service.Owned(r.Context(), actor.ID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if items == nil {
		items = []OwnedItem{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	httpx.LogError(h.logger, err)
	httpx.RespondError(w, err)
}
