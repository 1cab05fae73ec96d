package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/pratik-mahalle/pullrunner/internal/api/session"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/utils"
)

// ContextKey is a custom type for context keys
type ContextKey string

const (
	// SessionKey is the context key for the browser session
	SessionKey ContextKey = "session"

	// SessionCookie carries the session id
	SessionCookie = "pullrunner_session"
	// AuthCookie carries the backend auth token
	AuthCookie = "auth_token"
	// CSRFField is the form field holding the anti-forgery token
	CSRFField = "csrf_token"
	// CSRFHeader may carry the anti-forgery token instead of the form field
	CSRFHeader = "X-CSRFToken"
)

// Sessions returns a middleware that attaches the browser session to the
// request, starting one when the cookie is missing or stale. An auth_token
// cookie is adopted by sessions that have no credentials yet.
func Sessions(store *session.Store, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess *session.Session
			if c, err := r.Cookie(SessionCookie); err == nil {
				sess, _ = store.Get(c.Value)
			}
			if sess == nil {
				sess = store.Create()
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			if !sess.LoggedIn() {
				if c, err := r.Cookie(AuthCookie); err == nil && c.Value != "" {
					sess.SetCredentials(c.Value, "")
				}
			}

			AddLogField(w, "session", shortID(sess.ID))

			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin redirects requests of sessions without credentials to the
// login page
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := GetSession(r)
		if !ok || !sess.LoggedIn() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CSRF rejects state-changing requests that do not carry the session's
// anti-forgery token
func CSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		sess, ok := GetSession(r)
		if !ok {
			utils.WriteError(w, errors.Forbidden("No session"))
			return
		}

		token := r.Header.Get(CSRFHeader)
		if token == "" {
			token = r.PostFormValue(CSRFField)
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(sess.FormToken())) != 1 {
			utils.WriteError(w, errors.Forbidden("The anti-forgery token is missing or invalid."))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetSession extracts the browser session from the request context
func GetSession(r *http.Request) (*session.Session, bool) {
	sess, ok := r.Context().Value(SessionKey).(*session.Session)
	return sess, ok
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
