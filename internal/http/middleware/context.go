package middleware

import (
	"context"

	"github.com/communitytime/allocation-api/internal/auth"
)

type contextKey string

const (
	ContextKeyIdentity contextKey = "identity"
	ContextKeyRoles    contextKey = "roles"
)

// WithIdentity stores the verified caller.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, id)
}

// GetIdentity returns the verified caller, if the gate produced one.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(ContextKeyIdentity).(auth.Identity)
	return id, ok
}

// GetEmail returns the verified caller email or "".
func GetEmail(ctx context.Context) string {
	id, _ := GetIdentity(ctx)
	return id.Email
}

// WithRoles stores the caller's directory roles that passed a role check.
func WithRoles(ctx context.Context, roles []int) context.Context {
	return context.WithValue(ctx, ContextKeyRoles, roles)
}

// GetRoles returns the roles stored by a role check.
func GetRoles(ctx context.Context) []int {
	val, _ := ctx.Value(ContextKeyRoles).([]int)
	return val
}
