package auth

import "context"

// Permission names an action an actor may perform on activity feeds.
type Permission string

const (
	PermViewActivity Permission = "view_activity"
	PermAddNotes     Permission = "add_notes"
	PermEditOwnNotes Permission = "edit_own_notes"
	PermEditNotes    Permission = "edit_notes"
	PermAll          Permission = "*"
)

// Actor is the authenticated caller. Every command takes it explicitly.
type Actor struct {
	ID          string       `json:"actorId"`
	Name        string       `json:"name,omitempty"`
	Permissions []Permission `json:"permissions"`
}

// Has reports whether the actor holds p or the wildcard.
func (a *Actor) Has(p Permission) bool {
	if a == nil {
		return false
	}
	for _, cur := range a.Permissions {
		if cur == p || cur == PermAll {
			return true
		}
	}
	return false
}

type actorKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, or nil.
func ActorFrom(ctx context.Context) *Actor {
	a, _ := ctx.Value(actorKey{}).(*Actor)
	return a
}
