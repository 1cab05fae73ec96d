package handlers

import (
	"net/http"
	"strings"

	"github.com/pratik-mahalle/pullrunner/internal/api/middleware"
	"github.com/pratik-mahalle/pullrunner/internal/controller"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
)

// AuthHandler handles the dashboard login. The token is the backend's own
// access token; the dashboard stores it with the session and in the
// auth_token cookie and lets the backend judge it on the first mutation.
type AuthHandler struct {
	logger        *logger.Logger
	secureCookies bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(log *logger.Logger, secureCookies bool) *AuthHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{logger: log, secureCookies: secureCookies}
}

// LoginPage renders the login form
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	data := newPageData(sess, "/login", "Login")
	data.Notes = sess.Surface.TakeNotes()
	respondHTML(w, http.StatusOK, "login", data)
}

// Login stores the submitted credentials and opens the repositories page
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	token := strings.TrimSpace(r.PostFormValue("token"))
	if token == "" {
		sess.Surface.Notify("Invalid token")
		seeOther(w, r, "/login")
		return
	}

	sess.Dispatch(func() {
		sess.Reset()
		sess.SetCredentials(token, strings.TrimSpace(r.PostFormValue("backend_csrf")))
	})
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.With("session", sess.ID[:8]).Info("session logged in")
	seeOther(w, r, controller.RouteRepos)
}

// Logout drops the credentials and returns to the login page
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}

	sess.Dispatch(sess.Reset)
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AuthCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	seeOther(w, r, "/login")
}
