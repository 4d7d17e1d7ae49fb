package provisionsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ppmkfriends/ppmkconnect/pkg/httpx"
)

// Error codes written by the service.
const (
	ErrorCodeInvalidRequest   = "invalid_request"
	ErrorCodeInvalidGrant     = "invalid_grant"
	ErrorCodeInvalidToken     = "invalid_token"
	ErrorCodeInsufficientRole = "insufficient_role"
	ErrorCodeAccessDenied     = "access_denied"
	ErrorCodeNotFound         = "not_found"
	ErrorCodeConflict         = "conflict"
	ErrorCodeBatchTooLarge    = "batch_too_large"
	ErrorCodeRateLimited      = "rate_limit_exceeded"
	ErrorCodeServerError      = "server_error"
)

// ErrorResponse is the error envelope on the wire.
type ErrorResponse = httpx.ErrorResponse

// APIError is a non-success response from the service.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches on StatusCode and Code so callers can compare with the
// predefined errors through errors.Is.
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return e.StatusCode == t.StatusCode && e.Code == t.Code
}

// WriteError writes e as the response.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteError(w, e.StatusCode, e.Code, e.Description)
}

func NewAPIError(statusCode int, code, description string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Description: description}
}

var (
	ErrInvalidRequest = &APIError{
		StatusCode:  http.StatusBadRequest,
		Code:        ErrorCodeInvalidRequest,
		Description: "the request is malformed or missing required parameters",
	}

	ErrInvalidGrant = &APIError{
		StatusCode:  http.StatusUnauthorized,
		Code:        ErrorCodeInvalidGrant,
		Description: "invalid credentials",
	}

	ErrAccessDenied = &APIError{
		StatusCode:  http.StatusForbidden,
		Code:        ErrorCodeAccessDenied,
		Description: "access denied",
	}

	ErrNotFound = &APIError{
		StatusCode:  http.StatusNotFound,
		Code:        ErrorCodeNotFound,
		Description: "resource not found",
	}

	ErrConflict = &APIError{
		StatusCode:  http.StatusConflict,
		Code:        ErrorCodeConflict,
		Description: "resource already exists",
	}

	ErrServerError = &APIError{
		StatusCode:  http.StatusInternalServerError,
		Code:        ErrorCodeServerError,
		Description: "internal server error",
	}
)

func parseErrorResponse(resp *http.Response, body []byte) error {
	var env ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        env.Error,
			Description: env.ErrorDescription,
		}
	}

	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        ErrorCodeServerError,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
