package middleware

import (
	"net/http"

	"github.com/angelmondragon/hatchery-backend/api/responses"
)

// Debug exposes internal error text in response bodies. It is only mounted
// in dev.
func Debug(enabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(responses.WithDebug(r.Context(), true)))
		})
	}
}
