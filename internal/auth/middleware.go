package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/coincraft/coincraft/internal/platform/httpx"
	"github.com/coincraft/coincraft/internal/shared"
)

// Resolver maps a bearer token to an actor.
type Resolver interface {
	Lookup(ctx context.Context, token string) (shared.Actor, error)
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware authenticates requests and stores the actor in the context.
func Middleware(resolver Resolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := resolver.Lookup(r.Context(), BearerToken(r))
			if err != nil {
				httpx.LogError(logger, err)
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	}
}

// Handler exposes session endpoints for authenticated callers.
type Handler struct {
	logger   *slog.Logger
	sessions *SessionStore
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, sessions *SessionStore) *Handler {
	return &Handler{logger: logger, sessions: sessions}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/auth/whoami", h.whoami)
	r.Post("/auth/logout", h.logout)
}

func (h *Handler) whoami(w http.ResponseWriter, r *http.Request) {
	actor, ok := httpx.Actor(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, actor)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Revoke(r.Context(), BearerToken(r)); err != nil {
		httpx.LogError(h.logger, err)
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}
