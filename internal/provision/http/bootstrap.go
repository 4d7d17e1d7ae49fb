package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/domain"
	"github.com/ppmkfriends/ppmkconnect/internal/provision/service"
	"github.com/ppmkfriends/ppmkconnect/pkg/httpx"
	"github.com/ppmkfriends/ppmkconnect/pkg/provisionsdk"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

type BootstrapHandler struct {
	BootstrapService *service.BootstrapService
}

// ServeHTTP creates the first superadmin.
//
//	@Summary		Bootstrap the provisioning service
//	@Description	Creates the first superadmin account. Only available when a bootstrap token is configured and only while no account exists.
//	@Tags			Bootstrap
//	@Accept			json
//	@Produce		json
//	@Param			X-Bootstrap-Token	header		string							true	"Bootstrap token"
//	@Param			request				body		provisionsdk.BootstrapRequest	true	"Superadmin account"
//	@Success		201					{object}	provisionsdk.BootstrapResponse
//	@Failure		400					{object}	provisionsdk.ErrorResponse	"Invalid request body"
//	@Failure		401					{object}	provisionsdk.ErrorResponse	"Missing or invalid bootstrap token, or already bootstrapped"
//	@Failure		404					{object}	provisionsdk.ErrorResponse	"Bootstrap not enabled"
//	@Failure		500					{object}	provisionsdk.ErrorResponse
//	@Router			/v1/bootstrap [post].
func (h *BootstrapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	l := slogx.FromContext(r.Context())

	if h.BootstrapService.Token == "" {
		httpx.WriteError(w, http.StatusNotFound, provisionsdk.ErrorCodeNotFound, "Bootstrap endpoint is not enabled")
		return
	}

	token := r.Header.Get("X-Bootstrap-Token")
	if token == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Bootstrap token is required in X-Bootstrap-Token header")
		return
	}

	var req provisionsdk.BootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest, "Request body must be valid JSON")
		return
	}

	id, err := h.BootstrapService.Bootstrap(r.Context(), token, service.BootstrapData{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBootstrapAlready):
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "System has already been bootstrapped")
		case errors.Is(err, service.ErrBootstrapUnauthorized):
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid bootstrap token")
		case errors.Is(err, service.ErrBootstrapDisabled):
			httpx.WriteError(w, http.StatusNotFound, provisionsdk.ErrorCodeNotFound, "Bootstrap endpoint is not enabled")
		case errors.Is(err, service.ErrWeakPassword):
			httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest, "Password must be between 8 and 128 characters")
		case errors.Is(err, service.ErrInvalidCredentials):
			httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest, "A valid email address is required")
		default:
			l.Error("bootstrap failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, provisionsdk.ErrorCodeServerError, "An internal error occurred")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, provisionsdk.BootstrapResponse{
		UserID: id.ID,
		Email:  id.Email,
		Role:   domain.RoleSuperadmin.String(),
	})
}
