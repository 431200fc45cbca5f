package dto

import (
	"net/http"

	"github.com/tenantapi/backend/internal/domain/shared"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Authentication -> 401
	shared.CodeUnauthenticated:     http.StatusUnauthorized,
	shared.CodeInvalidCredentials:  http.StatusUnauthorized,
	shared.CodeInvalidRefreshToken: http.StatusUnauthorized,
	shared.CodeMissingRefreshToken: http.StatusUnauthorized,
	shared.CodeInvalidUser:         http.StatusUnauthorized,

	shared.CodeForbidden: http.StatusForbidden,
	shared.CodeNotFound:  http.StatusNotFound,

	// Conflicts -> 409
	shared.CodeDuplicateKey:          http.StatusConflict,
	shared.CodeIdempotencyKeyReused:  http.StatusConflict,
	shared.CodeIdempotencyInProgress: http.StatusConflict,

	// Missing request preconditions -> 400
	shared.CodeIdempotencyKeyRequired: http.StatusBadRequest,
	shared.CodeTenantRequired:         http.StatusBadRequest,

	shared.CodeInvalidInput:            http.StatusUnprocessableEntity,
	shared.CodeRequestTooLarge:         http.StatusRequestEntityTooLarge,
	shared.CodeRateLimited:             http.StatusTooManyRequests,
	shared.CodeServiceUnavailable:      http.StatusServiceUnavailable,
	shared.CodeSigningKeyMisconfigured: http.StatusInternalServerError,
	shared.CodeInternal:                http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
