package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// UserIDHeader carries the authenticated user's id, set by the identity
// provider's gateway in front of the API.
const UserIDHeader = "X-User-ID"

type userIDKey struct{}

// NewRequireUser returns a middleware that rejects requests without a valid
// UserIDHeader with 401 and stores the parsed id in the request context.
func NewRequireUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(r.Header.Get(UserIDHeader))
			if err != nil || id == uuid.Nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"code":"unauthorized","message":"missing or invalid ` + UserIDHeader + ` header"}}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
		})
	}
}

// WithUserID returns a copy of ctx carrying id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID returns the user id stored by NewRequireUser.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey{}).(uuid.UUID)
	return id, ok
}
