package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ppmkfriends/ppmkconnect/internal/provision/service"
	"github.com/ppmkfriends/ppmkconnect/pkg/httpx"
	"github.com/ppmkfriends/ppmkconnect/pkg/provisionsdk"
	"github.com/ppmkfriends/ppmkconnect/pkg/slogx"
)

type TokenHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP exchanges email and password for an access token.
//
//	@Summary		Sign in
//	@Description	Exchanges email and password for an EdDSA-signed access token carrying the user's role. The first sign-in of an invited user consumes the invitation.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		provisionsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	provisionsdk.TokenResponse
//	@Failure		400		{object}	provisionsdk.ErrorResponse	"Invalid request body"
//	@Failure		401		{object}	provisionsdk.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	provisionsdk.ErrorResponse	"Rate limit exceeded"
//	@Router			/v1/auth/token [post].
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req provisionsdk.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest, "email and password are required")
		return
	}

	res, err := h.AuthService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.WriteError(w, http.StatusUnauthorized, provisionsdk.ErrorCodeInvalidGrant, "Invalid email or password")
			return
		}
		slogx.FromContext(r.Context()).Error("login failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, provisionsdk.ErrorCodeServerError, "An internal error occurred")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, provisionsdk.TokenResponse{
		AccessToken:        res.AccessToken,
		TokenType:          "Bearer",
		ExpiresIn:          res.ExpiresIn,
		Role:               res.Role.String(),
		MustChangePassword: res.MustChangePassword,
	})
}

type PasswordHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP changes the caller's password.
//
//	@Summary		Change password
//	@Description	Replaces the caller's password and clears the forced-change flag set at provisioning.
//	@Tags			Auth
//	@Accept			json
//	@Param			request	body	provisionsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204
//	@Failure		400	{object}	provisionsdk.ErrorResponse	"Invalid request or weak password"
//	@Failure		401	{object}	provisionsdk.ErrorResponse	"Wrong current password or invalid token"
//	@Security		BearerAuth
//	@Router			/v1/auth/password [post].
func (h *PasswordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.SessionFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, provisionsdk.ErrorCodeInvalidToken, "authentication required")
		return
	}

	var req provisionsdk.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest, "Request body must be valid JSON")
		return
	}

	err := h.AuthService.ChangePassword(r.Context(), sess.UserID, req.CurrentPassword, req.NewPassword)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrWeakPassword):
		httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest,
			"New password must be 8 to 128 characters and differ from the current one")
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, provisionsdk.ErrorCodeInvalidGrant, "Current password is incorrect")
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, provisionsdk.ErrorCodeNotFound, "User not found")
	default:
		slogx.FromContext(r.Context()).Error("password change failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, provisionsdk.ErrorCodeServerError, "An internal error occurred")
	}
}

type MeHandler struct {
	AuthService *service.AuthService
}

// ServeHTTP returns the caller's account.
//
//	@Summary		Current user
//	@Description	Returns the caller's identity, profile and effective role.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	provisionsdk.MeResponse
//	@Failure		401	{object}	provisionsdk.ErrorResponse
//	@Failure		404	{object}	provisionsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, ok := httpx.SessionFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, provisionsdk.ErrorCodeInvalidToken, "authentication required")
		return
	}

	me, err := h.AuthService.Me(r.Context(), sess.UserID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			httpx.WriteError(w, http.StatusNotFound, provisionsdk.ErrorCodeNotFound, "User not found")
			return
		}
		slogx.FromContext(r.Context()).Error("failed to load session", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, provisionsdk.ErrorCodeServerError, "An internal error occurred")
		return
	}

	resp := provisionsdk.MeResponse{
		UserID:      me.Identity.ID,
		Email:       me.Identity.Email,
		Username:    me.Identity.Username,
		DisplayName: me.Identity.DisplayName,
		Role:        me.Role.String(),
	}
	if p := me.Profile; p != nil {
		resp.Username = p.Username
		resp.DisplayName = p.DisplayName
		resp.MustChangePassword = p.MustChangePassword
		resp.Bio = p.Bio
		resp.Profile = provisionsdk.ProfileData(p.Data)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
