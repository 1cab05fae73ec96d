package middleware

import (
	"net/http"
)

// EscapedPath makes the router match against the request's escaped path.
// Go keeps RawPath only when it differs from the default encoding of Path,
// so without it an identity like "50%25off" reaches handlers already decoded.
func EscapedPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.URL.RawPath = r.URL.EscapedPath()
		next.ServeHTTP(w, r)
	})
}
