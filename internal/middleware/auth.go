package middleware

import (
	"errors"
	"net/http"

	"github.com/climajusto/iacolhe/internal/auth"
	"github.com/climajusto/iacolhe/internal/utils"

	"github.com/gorilla/mux"
)

// Authenticate attaches the caller's identity to the request context. Requests
// without credentials pass through anonymously; the services decide whether
// they need a signed-in user.
func Authenticate(verifier *auth.Verifier, logger *utils.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := verifier.FromRequest(r)
			switch {
			case errors.Is(err, auth.ErrNoCredentials):
				next.ServeHTTP(w, r)
			case err != nil:
				logger.Warn("Rejected credentials", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			default:
				next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
			}
		})
	}
}
