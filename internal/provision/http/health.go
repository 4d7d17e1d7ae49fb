package http

import (
	"net/http"
	"time"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/store"
	"github.com/ppmkfriends/ppmkconnect/pkg/httpx"
	"github.com/ppmkfriends/ppmkconnect/pkg/jwtx"
	"github.com/ppmkfriends/ppmkconnect/pkg/provisionsdk"
)

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	Always returns 200 while the process is running.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	provisionsdk.HealthResponse
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, provisionsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Checks the database and the token signer.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	provisionsdk.HealthResponse
//	@Failure		503	{object}	provisionsdk.HealthResponse
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &provisionsdk.HealthChecks{Database: "ok", Signer: "ok"}
		status, code := "ok", http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
		}
		if !keys.IsReady() {
			checks.Signer = "error: no keys loaded"
			status, code = "degraded", http.StatusServiceUnavailable
		}

		httpx.WriteJSON(w, code, provisionsdk.HealthResponse{
			Status:  status,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

// JWKSHandler exposes the public keys that verify access tokens.
//
//	@Summary		Get JWKS
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	jwtx.JWKS
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, keys.JWKS())
	}
}
