package ledger

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/platform/httpx"
	"github.com/coincraft/coincraft/internal/shared"
)

// Handler exposes ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/balance", h.balance)
		r.Get("/entries", h.entries)
		r.Post("/entries", h.recordManual)
		r.Post("/entries/{id}/reverse", h.reverse)
		r.Get("/rollups", h.rollups)
		r.Get("/reconcile", h.reconcile)
	})
}

// subject resolves the optional actor_id query parameter, defaulting to the caller.
func (h *Handler) subject(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return uuid.Nil, false
	}
	subject := actor.ID
	if raw := r.URL.Query().Get("actor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, fmt.Errorf("%w: invalid actor_id", shared.ErrValidation))
			return uuid.Nil, false
		}
		subject = id
	}
	if err := h.service.Authorize(r.Context(), actor, subject); err != nil {
		h.respondErr(w, err)
		return uuid.Nil, false
	}
	return subject, true
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	balance, err := h.service.GetBalance(r.Context(), subject)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"actor_id": subject, "balance": balance})
}

func parseTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC3339", shared.ErrValidation, name)
	}
	return t, nil
}

func (h *Handler) entries(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	f := Filter{Kind: Kind(q.Get("kind")), Category: q.Get("category")}
	var err error
	if f.Range.From, err = parseTime(r, "from"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if f.Range.To, err = parseTime(r, "to"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if f.Limit, err = httpx.IntQuery(r, "limit", shared.DefaultPageLimit); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if f.Offset, err = httpx.IntQuery(r, "offset", 0); err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.EntriesFor(r.Context(), subject, f)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) recordManual(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	var input ManualEntryInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input.IdempotencyKey = r.Header.Get("Idempotency-Key")
	entry, err := h.service.RecordManual(r.Context(), actor, input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

type reverseRequest struct {
	Note string `json:"note"`
}

func (h *Handler) reverse(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	id, err := httpx.UUIDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req reverseRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	entry, err := h.service.ReverseAs(r.Context(), actor, id, req.Note)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) rollups(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	rollups, err := h.service.Rollups(r.Context(), subject)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rollups)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Reconcile(r.Context(), subject)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reconciliation": rec, "drift": rec.Drift()})
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	httpx.LogError(h.logger, err)
	httpx.RespondError(w, err)
}
