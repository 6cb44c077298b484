package auth

import (
	"context"
	"strings"
)

type userContextKey struct{}
type claimsContextKey struct{}

// ContextWithUser stores the authenticated user id and role in the context.
func ContextWithUser(ctx context.Context, userID, role string) context.Context {
	return context.WithValue(ctx, userContextKey{}, [2]string{strings.TrimSpace(userID), role})
}

// UserIDFromContext extracts the authenticated user id from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userContextKey{}).([2]string)
	if !ok || v[0] == "" {
		return "", false
	}
	return v[0], true
}

// RoleFromContext returns the authenticated user's role claim.
func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userContextKey{}).([2]string)
	if !ok || v[1] == "" {
		return "", false
	}
	return v[1], true
}

// HasRole checks the role claim case-insensitively.
func HasRole(ctx context.Context, role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	got, ok := RoleFromContext(ctx)
	return ok && strings.EqualFold(got, role)
}

// ContextWithClaims attaches full decoded claims to the context. One code
// path (the profile surface) reads these instead of the bare user id.
func ContextWithClaims(ctx context.Context, claims *Claims) context.Context {
	if claims == nil {
		return ctx
	}
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// ClaimsFromContext returns decoded claims if attached by the guard chain.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	v, ok := ctx.Value(claimsContextKey{}).(*Claims)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
