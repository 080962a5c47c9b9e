package httpx

import (
	"context"

	"github.com/aussiebroadwan/labauth/pkg/jwtx"
)

type ctxKey string

const ctxKeySession ctxKey = "session"

// WithSession stores verified session claims in ctx.
func WithSession(ctx context.Context, c jwtx.Claims) context.Context {
	return context.WithValue(ctx, ctxKeySession, c)
}

// SessionFromContext returns the session claims stored by SessionMiddleware.
func SessionFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(ctxKeySession).(jwtx.Claims)
	return c, ok
}

// UserIDFromContext returns the session subject, or "" without a session.
func UserIDFromContext(ctx context.Context) string {
	if c, ok := SessionFromContext(ctx); ok {
		return c.Subject
	}
	return ""
}
