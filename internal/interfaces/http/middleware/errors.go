package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/infrastructure/logger"
	"github.com/tenantapi/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// errorCodeKey records the error code of an aborted request for span tagging
const errorCodeKey = "error_code"

// AbortWithError ends the request with the error's code and status. Only
// invalid_request carries a message. Errors that are not domain errors
// become a logged 500 internal_error.
func AbortWithError(c *gin.Context, err error) {
	var de *shared.DomainError
	if !errors.As(err, &de) {
		logger.L(c.Request.Context()).Error("Unhandled error",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.Set(errorCodeKey, shared.CodeInternal)
		c.AbortWithStatusJSON(dto.GetHTTPStatus(shared.CodeInternal), dto.NewErrorResponse(shared.CodeInternal))
		return
	}
	c.Set(errorCodeKey, de.Code)
	resp := dto.NewErrorResponse(de.Code)
	if de.Code == shared.CodeInvalidInput {
		resp.Message = de.Message
	}
	c.AbortWithStatusJSON(dto.GetHTTPStatus(de.Code), resp)
}
