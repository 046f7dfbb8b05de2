package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSystemKey(t *testing.T) {
	var role string
	handler := SystemKey("s3cret", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	tests := []struct {
		name string
		key  string
		want int
	}{
		{name: "missing", key: "", want: http.StatusUnauthorized},
		{name: "wrong", key: "nope", want: http.StatusUnauthorized},
		{name: "match", key: "s3cret", want: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/create", nil)
			if tt.key != "" {
				req.Header.Set("X-System-Key", tt.key)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)
			if resp.Code != tt.want {
				t.Fatalf("expected %d got %d", tt.want, resp.Code)
			}
		})
	}
	if role != "system" {
		t.Fatalf("expected system role got %q", role)
	}
}

func TestSystemKeyClosedWhenUnconfigured(t *testing.T) {
	handler := SystemKey("", nil)(okHandler())
	req := httptest.NewRequest(http.MethodPost, "/create", nil)
	req.Header.Set("X-System-Key", "anything")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}
