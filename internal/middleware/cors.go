package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// corsMaxAge is how long, in seconds, browsers may cache a preflight result.
const corsMaxAge = 600

// NewCORSHandler returns a middleware that applies CORS headers for the web
// client. Each entry in allowedOrigins must be a full origin (scheme + host,
// no trailing slash). The identity header may be sent cross-origin, and the
// request ID set by chi is readable by the client for support reports.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", UserIDHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         corsMaxAge,
	})
	return c.Handler
}
