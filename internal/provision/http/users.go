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

type UsersHandler struct {
	UserService *service.UserService
}

// HandleList lists members with their role.
//
//	@Summary		List users
//	@Description	Lists member profiles with their effective role, newest first. q filters by name, email, username, course, level, phone number or role.
//	@Tags			Users
//	@Produce		json
//	@Param			q	query		string	false	"Search text"
//	@Success		200	{object}	provisionsdk.ListUsersResponse
//	@Failure		401	{object}	provisionsdk.ErrorResponse
//	@Failure		403	{object}	provisionsdk.ErrorResponse
//	@Failure		500	{object}	provisionsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/users [get].
func (h *UsersHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	members, err := h.UserService.List(ctx, r.URL.Query().Get("q"))
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list users", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, provisionsdk.ErrorCodeServerError, "Failed to retrieve users")
		return
	}

	resp := provisionsdk.ListUsersResponse{Users: make([]provisionsdk.UserSummary, len(members))}
	for i, m := range members {
		resp.Users[i] = toUserSummary(m)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleUpdateRole replaces a user's role.
//
//	@Summary		Update user role
//	@Description	Replaces the user's single role. Admins manage members and admins; only superadmins grant or revoke superadmin.
//	@Tags			Users
//	@Accept			json
//	@Param			id		path	string							true	"User ID"
//	@Param			request	body	provisionsdk.UpdateRoleRequest	true	"New role"
//	@Success		204
//	@Failure		400	{object}	provisionsdk.ErrorResponse	"Unknown role"
//	@Failure		401	{object}	provisionsdk.ErrorResponse
//	@Failure		403	{object}	provisionsdk.ErrorResponse	"Role change not permitted"
//	@Failure		404	{object}	provisionsdk.ErrorResponse	"User not found"
//	@Security		BearerAuth
//	@Router			/v1/users/{id}/role [put].
func (h *UsersHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, ok := httpx.SessionFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, provisionsdk.ErrorCodeInvalidToken, "authentication required")
		return
	}

	var req provisionsdk.UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest, "Request body must be valid JSON")
		return
	}

	err := h.UserService.UpdateRole(ctx, sess.UserID, domain.Role(sess.Role), r.PathValue("id"), req.Role)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, service.ErrInvalidRole):
		httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest, "role must be one of member, admin, superadmin")
	case errors.Is(err, service.ErrForbiddenRole):
		httpx.WriteError(w, http.StatusForbidden, provisionsdk.ErrorCodeInsufficientRole, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		httpx.WriteError(w, http.StatusNotFound, provisionsdk.ErrorCodeNotFound, "User not found")
	default:
		slogx.FromContext(ctx).Error("failed to update role", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, provisionsdk.ErrorCodeServerError, "An internal error occurred")
	}
}

type InvitationsHandler struct {
	UserService *service.UserService
}

// ServeHTTP lists invitations.
//
//	@Summary		List invitations
//	@Description	Lists every invitation, newest first. Secret hashes are never returned.
//	@Tags			Invitations
//	@Produce		json
//	@Success		200	{object}	provisionsdk.ListInvitationsResponse
//	@Failure		401	{object}	provisionsdk.ErrorResponse
//	@Failure		403	{object}	provisionsdk.ErrorResponse
//	@Failure		500	{object}	provisionsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invitations [get].
func (h *InvitationsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	invs, err := h.UserService.ListInvitations(ctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list invitations", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, provisionsdk.ErrorCodeServerError, "Failed to retrieve invitations")
		return
	}

	resp := provisionsdk.ListInvitationsResponse{Invitations: make([]provisionsdk.InvitationInfo, len(invs))}
	for i, inv := range invs {
		resp.Invitations[i] = toInvitationInfo(inv)
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
