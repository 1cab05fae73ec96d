package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns a CORS middleware for the dashboard. Pages only ever post
// forms back to their own origin, so only GET and POST are allowed.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			CSRFHeader,
			RequestIDHeader,
		},
		ExposedHeaders: []string{
			RequestIDHeader,
		},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	})
}
