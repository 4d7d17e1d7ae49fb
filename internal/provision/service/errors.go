package service

import "errors"

// Batch-fatal errors. When one of these is returned no row was processed.
var (
	ErrMissingUsers    = errors.New("users is required")
	ErrBatchTooLarge   = errors.New("batch exceeds the maximum size")
	ErrMissingOperator = errors.New("operator identity is required")
	ErrSecretGenerator = errors.New("secret generator failed")
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrForbiddenRole      = errors.New("role change not permitted")
	ErrWeakPassword       = errors.New("password does not meet requirements")
	ErrEmailTaken         = errors.New("a user with this email address has already been registered")
	ErrUserNotFound       = errors.New("user not found")
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
	ErrBootstrapDisabled     = errors.New("bootstrap is disabled")
)
