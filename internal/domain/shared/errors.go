package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped cause, if any
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches domain errors by code so wrapped copies compare equal to the sentinels.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithCause returns a copy of the error carrying the underlying cause.
func (e *DomainError) WithCause(err error) *DomainError {
	return &DomainError{Code: e.Code, Message: e.Message, Err: err}
}

// WithMessage returns a copy of the error with a more specific message.
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{Code: e.Code, Message: message, Err: e.Err}
}

// Error codes. These are the values clients see in the "error" field.
const (
	CodeUnauthenticated         = "unauthorized"
	CodeInvalidCredentials      = "invalid_credentials"
	CodeInvalidRefreshToken     = "invalid_refresh_token"
	CodeMissingRefreshToken     = "missing_refresh_token"
	CodeInvalidUser             = "invalid_user"
	CodeForbidden               = "forbidden"
	CodeNotFound                = "not_found"
	CodeDuplicateKey            = "duplicate_key"
	CodeIdempotencyKeyReused    = "idempotency_key_reused"
	CodeIdempotencyInProgress   = "idempotency_request_in_progress"
	CodeIdempotencyKeyRequired  = "idempotency_key_required"
	CodeTenantRequired          = "tenant_required"
	CodeInvalidInput            = "invalid_request"
	CodeRateLimited             = "rate_limited"
	CodeInternal                = "internal_error"
	CodeRequestTooLarge         = "request_too_large"
	CodeServiceUnavailable      = "service_unavailable"
	CodeSigningKeyMisconfigured = "signing_error"
)

// Common domain errors
var (
	ErrUnauthenticated      = NewDomainError(CodeUnauthenticated, "Authentication required")
	ErrInvalidCredentials   = NewDomainError(CodeInvalidCredentials, "Invalid credentials")
	ErrInvalidRefreshToken  = NewDomainError(CodeInvalidRefreshToken, "Invalid refresh token")
	ErrMissingRefreshToken  = NewDomainError(CodeMissingRefreshToken, "Refresh token is missing")
	ErrInvalidUser          = NewDomainError(CodeInvalidUser, "User no longer exists")
	ErrForbidden            = NewDomainError(CodeForbidden, "Access to this resource is forbidden")
	ErrNotFound             = NewDomainError(CodeNotFound, "Resource not found")
	ErrDuplicateKey         = NewDomainError(CodeDuplicateKey, "Resource with the same key already exists")
	ErrIdempotencyKeyReused = NewDomainError(CodeIdempotencyKeyReused, "Idempotency key was already used for a different request")
	ErrIdempotencyInFlight  = NewDomainError(CodeIdempotencyInProgress, "A request with this idempotency key is in progress")
	ErrInvalidInput         = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrSigningKey           = NewDomainError(CodeSigningKeyMisconfigured, "Token signing key is not configured")
)

// CodeOf returns the domain code of err, or CodeInternal for unknown errors.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
