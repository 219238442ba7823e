package authctx

import (
	"context"

	"github.com/ErlanBelekov/xblt/internal/token"
)

type ctxKey struct{}

// WithClaims returns a copy of ctx carrying the verified session claims.
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// ClaimsFromContext returns the claims set by the auth middleware, or
// false if the request was not authenticated.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*token.Claims)
	return claims, ok && claims != nil
}

// UserID returns the authenticated user id or "".
func UserID(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.UserID
	}
	return ""
}
