// Package middleware contains HTTP middleware for the controller.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// userIDKey is the context key for the authenticated user ID.
type userIDKey struct{}

// Auth extracts the user identity from the request. Identity resolution
// happens upstream at the gateway; this service trusts the X-User-ID header
// it injects. Every operation must be scoped by user_id.
func Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get("X-User-ID"))
		if err != nil {
			http.Error(w, "missing or invalid user ID", http.StatusUnauthorized)
			return
		}

		ctx := NewContextWithUserID(r.Context(), userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// NewContextWithUserID returns a context carrying the given user ID.
func NewContextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext extracts the user ID from the context.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	if v := ctx.Value(userIDKey{}); v != nil {
		return v.(uuid.UUID), true
	}
	return uuid.Nil, false
}
