package dto

// ErrorResponse is the body of every error response.
// Error is the machine-readable code; Message and Details are optional.
type ErrorResponse struct {
	Error   string             `json:"error"`
	Message string             `json:"message,omitempty"`
	Details []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail describes one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// OKResponse is returned by endpoints with nothing else to say
type OKResponse struct {
	OK bool `json:"ok" example:"true"`
}

// HealthResponse is the body of the health check
type HealthResponse struct {
	OK       bool   `json:"ok"`
	Database string `json:"database"`
}

// NewErrorResponse creates an error response with just a code
func NewErrorResponse(code string) ErrorResponse {
	return ErrorResponse{Error: code}
}

// NewErrorResponseWithMessage creates an error response with a human-readable message
func NewErrorResponseWithMessage(code, message string) ErrorResponse {
	return ErrorResponse{Error: code, Message: message}
}

// NewValidationErrorResponse creates an error response carrying field details
func NewValidationErrorResponse(code, message string, details []ValidationDetail) ErrorResponse {
	return ErrorResponse{Error: code, Message: message, Details: details}
}
