package auth

import (
	"context"

	"melodora/internal/core"
)

type contextKey struct{}

// WithUser returns a context carrying user.
func WithUser(ctx context.Context, user *core.User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext returns the signed-in user, or nil.
func UserFromContext(ctx context.Context) *core.User {
	user, _ := ctx.Value(contextKey{}).(*core.User)
	return user
}
