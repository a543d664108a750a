package analytics

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SessionCookie holds the visitor's session id. It carries no expiry, so it
// lasts as long as the browser session.
const SessionCookie = "lockard_session_id"

type sessionKey struct{}

// WithSession returns a context carrying the session id.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFrom returns the session id carried by ctx.
func SessionFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}

// GetOrCreateSessionID returns the session id from the request cookie,
// issuing a new one when absent.
func GetOrCreateSessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// SessionMiddleware attaches the visitor's session id to the request context.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := GetOrCreateSessionID(w, r)
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), id)))
	})
}
