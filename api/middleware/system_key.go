package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/angelmondragon/hatchery-backend/api/responses"
	pkgerrors "github.com/angelmondragon/hatchery-backend/pkg/errors"
	"github.com/angelmondragon/hatchery-backend/pkg/logger"
)

const systemKeyHeader = "X-System-Key"

// SystemKey admits callers presenting the shared service key. An empty
// configured key closes the route entirely.
func SystemKey(apiKey string, logg *logger.Logger) func(http.Handler) http.Handler {
	expected := []byte(strings.TrimSpace(apiKey))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := []byte(strings.TrimSpace(r.Header.Get(systemKeyHeader)))
			if len(expected) == 0 || len(provided) == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "system key required"))
				return
			}
			if subtle.ConstantTimeCompare(expected, provided) != 1 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid system key"))
				return
			}

			ctx := WithRole(r.Context(), "system")
			if logg != nil {
				ctx = logg.WithActorRole(ctx, "system")
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
