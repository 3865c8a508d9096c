package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"daybell/internal/logger"
)

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	})

	rr := httptest.NewRecorder()
	RequestID(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/schedule", nil))

	if seen == "" {
		t.Fatal("no request id on context")
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("generated id %q is not a uuid", seen)
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("response header = %q, context id = %q", got, seen)
	}
}

func TestRequestID_PreservesCallerID(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logger.RequestIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/schedule", nil)
	req.Header.Set("X-Request-ID", "gw-42")
	rr := httptest.NewRecorder()
	RequestID(next).ServeHTTP(rr, req)

	if seen != "gw-42" {
		t.Errorf("context id = %q, want gw-42", seen)
	}
	if got := rr.Header().Get("X-Request-ID"); got != "gw-42" {
		t.Errorf("response header = %q, want gw-42", got)
	}
}
