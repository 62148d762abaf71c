package auth

import (
	"context"

	"remitdesk.org/internal/store"
)

// Principal is the authenticated caller: the verified claims plus the
// backing user record. It travels through the request context explicitly;
// there is no ambient session state.
type Principal struct {
	User   *store.User
	Claims *Claims
}

type principalContextKey struct{}

// ContextWithPrincipal attaches the authenticated principal to the context.
func ContextWithPrincipal(ctx context.Context, principal Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, &principal)
}

// PrincipalFromContext extracts the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalContextKey{}).(*Principal)
	if !ok || v == nil || v.User == nil {
		return Principal{}, false
	}
	return *v, true
}
