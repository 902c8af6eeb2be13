package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/toolshub/internal/auth"
	"github.com/dukerupert/toolshub/internal/rpc"
	"github.com/dukerupert/toolshub/internal/store"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "toolshub_session"

// SessionToken reads the session token from the cookie or an
// "Authorization: Bearer" header.
func SessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func lookup(sessions *store.SessionStore, users *store.UserStore, r *http.Request) (auth.AuthContext, bool) {
	token := SessionToken(r)
	if token == "" {
		return auth.AuthContext{}, false
	}
	sess, err := sessions.GetByToken(token)
	if err != nil || sess == nil {
		return auth.AuthContext{}, false
	}
	user, err := users.GetByID(sess.UserID)
	if err != nil || user == nil {
		return auth.AuthContext{}, false
	}
	return auth.AuthContext{UserID: user.ID, Email: user.Email, SessionID: sess.ID}, true
}

// RequireAuth validates the session and populates AuthContext. Unauthenticated
// requests get a 401 with an unsuccessful envelope.
func RequireAuth(sessions *store.SessionStore, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ac, ok := lookup(sessions, users, r)
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(rpc.Fail("authentication required"))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithAuth(r.Context(), ac)))
		})
	}
}

// OptionalAuth populates AuthContext when a valid session is present and
// otherwise lets the request through anonymously.
func OptionalAuth(sessions *store.SessionStore, users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ac, ok := lookup(sessions, users, r); ok {
				r = r.WithContext(auth.WithAuth(r.Context(), ac))
			}
			next.ServeHTTP(w, r)
		})
	}
}
