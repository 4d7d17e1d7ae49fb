package httpx

import (
	"context"
	"net/http"
	"slices"

	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

// RoleResolver returns the stored role of userID. ok is false when the user
// has no stored role, in which case the token's role stands.
type RoleResolver func(ctx context.Context, userID string) (role string, ok bool, err error)

// RefreshRole replaces the token's role with the stored one so a role change
// takes effect before the token expires. It must run after AuthnMiddleware
// and before RequireRole.
func RefreshRole(resolve RoleResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFrom(r.Context())
			if !ok {
				writeBearerError(w, "authentication required")
				return
			}

			role, found, err := resolve(r.Context(), s.UserID)
			if err != nil {
				slogx.FromContext(r.Context()).Error("failed to resolve role", "user_id", s.UserID, "error", err)
				WriteError(w, http.StatusInternalServerError, "server_error", "An internal error occurred")
				return
			}
			if found && role != s.Role {
				s.Role = role
				r = r.WithContext(WithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole lets the request through only when the session role is one of
// roles. It must run after AuthnMiddleware.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFrom(r.Context())
			if !ok {
				writeBearerError(w, "authentication required")
				return
			}
			if !slices.Contains(roles, s.Role) {
				WriteError(w, http.StatusForbidden, "insufficient_role",
					"this operation requires one of the roles: "+joinRoles(roles))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func joinRoles(roles []string) string {
	out := ""
	for i, r := range roles {
		if i > 0 {
			out += ", "
		}
		out += r
	}
	return out
}
