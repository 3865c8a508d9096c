package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestAuth(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name           string
		header         string
		expectedStatus int
		expectNext     bool
	}{
		{
			name:           "Valid user ID",
			header:         userID.String(),
			expectedStatus: http.StatusOK,
			expectNext:     true,
		},
		{
			name:           "Missing header",
			header:         "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Garbage header",
			header:         "not-a-uuid",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				got, ok := UserIDFromContext(r.Context())
				if !ok {
					t.Error("user ID missing from context")
				}
				if got != userID {
					t.Errorf("user ID = %s, want %s", got, userID)
				}
			})

			req := httptest.NewRequest(http.MethodGet, "/v1/schedule", nil)
			if tt.header != "" {
				req.Header.Set("X-User-ID", tt.header)
			}
			rr := httptest.NewRecorder()
			Auth(next).ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
			if nextCalled != tt.expectNext {
				t.Errorf("next called = %v, want %v", nextCalled, tt.expectNext)
			}
		})
	}
}

func TestUserIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserIDFromContext(req.Context()); ok {
		t.Error("expected no user ID on a bare context")
	}
}
