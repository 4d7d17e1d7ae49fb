package httpx

import "net/http"

// CORS answers preflight requests and stamps the allow headers the admin
// web client needs. An empty origin disables the middleware.
func CORS(allowOrigin string) Middleware {
	return func(next http.Handler) http.Handler {
		if allowOrigin == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allowOrigin)
			h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, x-request-id, content-type")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
