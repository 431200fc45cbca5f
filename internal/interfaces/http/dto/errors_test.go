package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tenantapi/backend/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{shared.CodeUnauthenticated, http.StatusUnauthorized},
		{shared.CodeInvalidCredentials, http.StatusUnauthorized},
		{shared.CodeInvalidRefreshToken, http.StatusUnauthorized},
		{shared.CodeMissingRefreshToken, http.StatusUnauthorized},
		{shared.CodeInvalidUser, http.StatusUnauthorized},
		{shared.CodeForbidden, http.StatusForbidden},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeDuplicateKey, http.StatusConflict},
		{shared.CodeIdempotencyKeyReused, http.StatusConflict},
		{shared.CodeIdempotencyInProgress, http.StatusConflict},
		{shared.CodeIdempotencyKeyRequired, http.StatusBadRequest},
		{shared.CodeTenantRequired, http.StatusBadRequest},
		{shared.CodeInvalidInput, http.StatusUnprocessableEntity},
		{shared.CodeRateLimited, http.StatusTooManyRequests},
		{shared.CodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{"something_else", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestErrorResponse_OmitsEmptyFields(t *testing.T) {
	raw, err := json.Marshal(NewErrorResponse(shared.CodeNotFound))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"not_found"}`, string(raw))

	raw, err = json.Marshal(NewValidationErrorResponse(shared.CodeInvalidInput, "Request validation failed",
		[]ValidationDetail{{Field: "sku", Message: "This field is required"}}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"invalid_request","message":"Request validation failed","details":[{"field":"sku","message":"This field is required"}]}`, string(raw))
}
