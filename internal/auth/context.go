package auth

import "context"

type sessionCtxKey struct{}

func WithSession(ctx context.Context, session *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, session)
}

func SessionFromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionCtxKey{}).(*Session)
	return session, ok && session != nil
}

// IsAdmin reports whether the request context carries an admin session.
func IsAdmin(ctx context.Context) bool {
	session, ok := SessionFromContext(ctx)
	return ok && session.IsAdmin()
}
