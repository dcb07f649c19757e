package middleware

import (
	"context"

	"github.com/angelmondragon/storefront/internal/session"
)

type contextKey string

const ctxSession contextKey = "session"

// SessionFromContext returns the authenticated session seeded by Auth.
func SessionFromContext(ctx context.Context) (session.Session, bool) {
	if ctx == nil {
		return session.Session{}, false
	}
	s, ok := ctx.Value(ctxSession).(session.Session)
	return s, ok
}

// UserFromContext returns the authenticated user name, or "".
func UserFromContext(ctx context.Context) string {
	s, _ := SessionFromContext(ctx)
	return s.User
}

// WithSession injects the session into the context.
func WithSession(ctx context.Context, s session.Session) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSession, s)
}
