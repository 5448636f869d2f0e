package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInternalAuthMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := InternalAuthMiddleware("secret-key")(next)

	tests := []struct {
		name       string
		headerKey  string
		wantStatus int
	}{
		{name: "missing key", headerKey: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", headerKey: "wrong", wantStatus: http.StatusUnauthorized},
		{name: "correct key", headerKey: "secret-key", wantStatus: http.StatusNoContent},
		{name: "correct key with padding", headerKey: "  secret-key  ", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.headerKey != "" {
				req.Header.Set(internalAPIKeyHeader, tt.headerKey)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestInternalAuthMiddleware_EmptyConfiguredKeyDisablesCheck(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := InternalAuthMiddleware("")(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected request to pass with no configured key, got %d", rec.Code)
	}
}
