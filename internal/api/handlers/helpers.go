package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/pullrunner/internal/api/middleware"
	"github.com/pratik-mahalle/pullrunner/internal/api/session"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// respondHTML executes a named template into a buffer first so a failing
// template never sends half a page
func respondHTML(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		utils.WriteError(w, errors.Internal("Failed to render page", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// requireSession returns the request's session or writes a 403
func requireSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := middleware.GetSession(r)
	if !ok {
		utils.WriteError(w, errors.Forbidden("No session"))
		return nil, false
	}
	return sess, true
}

// pathID returns a record identity from the URL. Identities arrive
// percent-encoded once and are decoded exactly once here. The router
// matches on the escaped path, so the parameter is still encoded.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id, err := url.PathUnescape(chi.URLParam(r, name))
	if err != nil || id == "" {
		utils.WriteError(w, errors.BadRequest("Invalid "+name))
		return "", false
	}
	return id, true
}

// seeOther redirects the browser to a page after a form post
func seeOther(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
