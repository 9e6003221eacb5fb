package middleware

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/citylaw/docket/internal/access"
	"github.com/citylaw/docket/internal/domain"
)

// RequireActiveUser reloads the authenticated account so that deactivation
// and role or department changes apply before the token expires. It must be
// chained after Auth.
func RequireActiveUser(users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			u, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					log.Error().Err(err).Str("user_id", userID.String()).Msg("auth: user lookup failed")
					writeError(w, http.StatusInternalServerError, "internal server error")
					return
				}
				writeError(w, http.StatusUnauthorized, "account not found")
				return
			}
			if !u.Active {
				writeError(w, http.StatusUnauthorized, "account is deactivated")
				return
			}

			p := access.Principal{UserID: u.ID, Role: u.Role, DepartmentID: u.DepartmentID}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
