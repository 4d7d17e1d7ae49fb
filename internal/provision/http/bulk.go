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

// maxBulkBody bounds the request body of a bulk import.
const maxBulkBody = 8 << 20

type BulkUsersHandler struct {
	BatchService *service.BatchService
}

// ServeHTTP provisions a batch of accounts.
//
//	@Summary		Bulk create users
//	@Description	Provisions every row in order: invitation, account, profile and role, then emails the credentials. Per-row failures are reported in results and never abort the batch.
//	@Tags			Users
//	@Accept			json
//	@Produce		json
//	@Param			request	body		provisionsdk.BulkCreateUsersRequest	true	"Rows to provision"
//	@Success		200		{object}	provisionsdk.BulkCreateUsersResponse
//	@Failure		400		{object}	provisionsdk.ErrorResponse	"Malformed body or missing users"
//	@Failure		401		{object}	provisionsdk.ErrorResponse
//	@Failure		403		{object}	provisionsdk.ErrorResponse	"Caller is not a superadmin or createdBy does not match"
//	@Failure		413		{object}	provisionsdk.ErrorResponse	"Batch too large"
//	@Failure		500		{object}	provisionsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/users/bulk [post].
func (h *BulkUsersHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := slogx.FromContext(ctx)

	sess, ok := httpx.SessionFrom(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, provisionsdk.ErrorCodeInvalidToken, "authentication required")
		return
	}

	var req provisionsdk.BulkCreateUsersRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBulkBody)).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest, "Request body must be valid JSON")
		return
	}
	if req.CreatedBy != "" && req.CreatedBy != sess.UserID {
		l.Warn("createdBy does not match session", "created_by", req.CreatedBy)
		httpx.WriteError(w, http.StatusForbidden, provisionsdk.ErrorCodeAccessDenied, "createdBy must be the signed-in operator")
		return
	}

	res, err := h.BatchService.Run(ctx, toAccountRequests(req.Users), sess.UserID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingUsers), errors.Is(err, service.ErrMissingOperator):
			httpx.WriteError(w, http.StatusBadRequest, provisionsdk.ErrorCodeInvalidRequest, err.Error())
		case errors.Is(err, service.ErrBatchTooLarge):
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, provisionsdk.ErrorCodeBatchTooLarge, err.Error())
		default:
			l.Error("bulk import rejected", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, provisionsdk.ErrorCodeServerError, err.Error())
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toBulkResponse(res))
}
