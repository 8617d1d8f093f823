package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/coincraft/coincraft/internal/auth"
	"github.com/coincraft/coincraft/internal/shared"
)

func newStore(t *testing.T) (*auth.SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return auth.NewSessionStore(client, "test_session", time.Hour), mr
}

func TestIssueAndLookup(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()
	actor := shared.Actor{ID: uuid.New(), Role: shared.RoleOlderChild}

	token, err := store.Issue(ctx, actor)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	require.Equal(t, actor, got)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	require.True(t, strings.HasPrefix(keys[0], "test_session:"))
	require.NotContains(t, keys[0], token, "raw token must not be stored")
	require.Equal(t, time.Hour, mr.TTL(keys[0]))
}

func TestLookupExpiredAndRevoked(t *testing.T) {
	store, mr := newStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, shared.Actor{ID: uuid.New(), Role: shared.RoleParent})
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)
	_, err = store.Lookup(ctx, token)
	require.ErrorIs(t, err, auth.ErrSessionNotFound)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	token, err = store.Issue(ctx, shared.Actor{ID: uuid.New(), Role: shared.RoleParent})
	require.NoError(t, err)
	require.NoError(t, store.Revoke(ctx, token))
	_, err = store.Lookup(ctx, token)
	require.True(t, errors.Is(err, auth.ErrSessionNotFound))
}

func TestIssueRejectsUnknownRole(t *testing.T) {
	store, _ := newStore(t)
	_, err := store.Issue(context.Background(), shared.Actor{ID: uuid.New(), Role: "admin"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestMiddleware(t *testing.T) {
	store, _ := newStore(t)
	actor := shared.Actor{ID: uuid.New(), Role: shared.RoleTeacher}
	token, err := store.Issue(context.Background(), actor)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(auth.Middleware(store, nil))
	auth.NewHandler(nil, store).MountRoutes(r)

	req := httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res = httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), actor.ID.String())

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res = httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res = httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.Empty(t, auth.BearerToken(req))
	req.Header.Set("Authorization", "Basic abc")
	require.Empty(t, auth.BearerToken(req))
	req.Header.Set("Authorization", "bearer abc")
	require.Equal(t, "abc", auth.BearerToken(req))
}
