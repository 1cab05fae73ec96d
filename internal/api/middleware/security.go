package middleware

import (
	"net/http"
)

// contentSecurityPolicy allows the dashboard's own forms and the bootstrap
// stylesheet, nothing else
const contentSecurityPolicy = "default-src 'self'; " +
	"style-src 'self' https://cdn.jsdelivr.net; " +
	"script-src 'none'; " +
	"form-action 'self'; " +
	"frame-ancestors 'none'"

// SecurityHeaders adds common security headers to responses. HSTS is only
// sent when the dashboard is served over TLS.
func SecurityHeaders(tls bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Content-Security-Policy", contentSecurityPolicy)
			h.Set("Referrer-Policy", "same-origin")
			h.Set("Cache-Control", "no-store")

			if tls {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
