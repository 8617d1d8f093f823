package requests

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/platform/httpx"
	"github.com/coincraft/coincraft/internal/shared"
)

// Handler exposes purchase and redemption endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/requests", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/purchases", h.requestPurchase)
		r.Post("/redemptions", h.requestRedemption)
		r.Get("/{id}", h.get)
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/reject", h.reject)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	kind, status := Kind(q.Get("kind")), Status(q.Get("status"))
	if kind != "" && !kind.IsValid() {
		httpx.RespondError(w, fmt.Errorf("%w: unknown kind %q", shared.ErrValidation, kind))
		return
	}
	if status != "" && !status.IsValid() {
		httpx.RespondError(w, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, status))
		return
	}
	var (
		reqs []Request
		err  error
	)
	if actor.Role.IsGuardian() {
		reqs, err = h.service.ListForGuardian(r.Context(), actor, kind, status)
	} else {
		reqs, err = h.service.List(r.Context(), actor, kind, status)
	}
	if err != nil {
		h.respondErr(w, err)
		return
	}
	if reqs == nil {
		reqs = []Request{}
	}
	httpx.JSON(w, http.StatusOK, reqs)
}

type purchaseRequest struct {
	ShopItemID uuid.UUID `json:"shop_item_id"`
}

func (h *Handler) requestPurchase(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var body purchaseRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.RequestPurchase(r.Context(), actor, body.ShopItemID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) requestRedemption(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var input RedemptionInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.RequestRedemption(r.Context(), actor, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.Approve(r.Context(), actor, id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

type rejectRequest struct {
	Note string `json:"note"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body rejectRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(w, r, &body); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	req, err := h.service.Reject(r.Context(), actor, id, body.Note)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	httpx.LogError(h.logger, err)
	httpx.RespondError(w, err)
}
