package httpx

import (
	"net/http"
	"strings"

	"github.com/ppmkfriends/ppmkconnect/pkg/jwtx"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

// AuthnMiddleware verifies the bearer token and injects the Session.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			if !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")))
			if err != nil {
				slogx.FromContext(r.Context()).Warn("bearer token rejected", "error", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx := WithSession(r.Context(), sessionFromClaims(claims))
			ctx = slogx.With(ctx, "operator_id", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "invalid_token", desc)
}
