package shared

import "context"

// Role enumerates actor roles supplied by the identity provider.
type Role string

const (
	// RoleRecorder submits and edits shift forms.
	RoleRecorder Role = "recorder"
	// RoleSupervisor approves or rejects finalized forms.
	RoleSupervisor Role = "supervisor"
	// RoleAdmin may additionally edit approved records.
	RoleAdmin Role = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleRecorder, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// Actor identifies the acting user as asserted by the identity provider.
// The workflow never authenticates users itself.
type Actor struct {
	ID   string
	Name string
	Role Role
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
