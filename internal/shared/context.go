package shared

import (
	"context"

	"github.com/google/uuid"
)

// Role is the platform role of an actor.
type Role string

const (
	RoleParent       Role = "parent"
	RoleTeacher      Role = "teacher"
	RoleYoungerChild Role = "younger_child"
	RoleOlderChild   Role = "older_child"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleParent, RoleTeacher, RoleYoungerChild, RoleOlderChild:
		return true
	default:
		return false
	}
}

// IsChild reports whether r holds a coin account of its own.
func (r Role) IsChild() bool {
	return r == RoleYoungerChild || r == RoleOlderChild
}

// IsGuardian reports whether r may assign tasks and approve requests.
func (r Role) IsGuardian() bool {
	return r == RoleParent || r == RoleTeacher
}

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	ID   uuid.UUID `json:"actor_id"`
	Role Role      `json:"role"`
}

type actorContextKey struct{}

// ContextWithActor stores the caller in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the caller from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok && actor.ID != uuid.Nil
}
