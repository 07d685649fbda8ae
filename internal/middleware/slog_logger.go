// Package middleware provides HTTP middleware for the trip planner API server.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewSlogLogger returns a middleware that logs each request as one structured
// line via the provided slog.Logger. Besides method, path, status and
// duration it records the matched chi route pattern, the response size, the
// caller from UserIDHeader and the request ID set by chi's RequestID
// middleware. Server errors are logged at warn level.
//
// Wire it after chimiddleware.RequestID so the request ID is available.
func NewSlogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// WrapResponseWriter intercepts WriteHeader so we can read the
			// status code after the downstream handler has run.
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimiddleware.GetReqID(r.Context()),
			}
			// The route pattern is only complete once routing has finished.
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				attrs = append(attrs, "route", rctx.RoutePattern())
			}
			if user := r.Header.Get(UserIDHeader); user != "" {
				attrs = append(attrs, "user_id", user)
			}
			log.Log(r.Context(), level, "request", attrs...)
		})
	}
}
