// Package auth resolves bearer tokens to actors. Tokens are minted by the
// identity provider's adapter (or the operator CLI) and stored in Redis only
// as digests.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"

	"github.com/coincraft/coincraft/internal/shared"
)

// ErrSessionNotFound indicates an unknown, expired or revoked token.
var ErrSessionNotFound = fmt.Errorf("%w: session not found", shared.ErrUnauthorized)

// SessionStore keeps token to actor mappings in Redis.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = "coincraft:session"
	}
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

// TTL exposes the configured session lifetime.
func (s *SessionStore) TTL() time.Duration {
	return s.ttl
}

// Issue mints a token for actor.
func (s *SessionStore) Issue(ctx context.Context, actor shared.Actor) (string, error) {
	if !actor.Role.IsValid() {
		return "", fmt.Errorf("%w: unknown role %q", shared.ErrValidation, actor.Role)
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("auth: token entropy: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	payload, err := json.Marshal(actor)
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, s.key(token), payload, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("auth: store session: %w", err)
	}
	return token, nil
}

// Lookup returns the actor behind token.
func (s *SessionStore) Lookup(ctx context.Context, token string) (shared.Actor, error) {
	if token == "" {
		return shared.Actor{}, ErrSessionNotFound
	}
	payload, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return shared.Actor{}, ErrSessionNotFound
	}
	if err != nil {
		return shared.Actor{}, fmt.Errorf("auth: load session: %w", err)
	}
	var actor shared.Actor
	if err := json.Unmarshal(payload, &actor); err != nil {
		return shared.Actor{}, fmt.Errorf("auth: decode session: %w", err)
	}
	return actor, nil
}

// Revoke deletes the session behind token.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("auth: revoke session: %w", err)
	}
	return nil
}

func (s *SessionStore) key(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return s.prefix + ":" + hex.EncodeToString(sum[:])
}
