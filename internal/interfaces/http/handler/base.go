// Package handler holds the HTTP handlers of the API.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tenantapi/backend/internal/domain/identity"
	"github.com/tenantapi/backend/internal/domain/shared"
	"github.com/tenantapi/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// actor returns the authenticated identity or aborts with 401
func (h *BaseHandler) actor(c *gin.Context) (identity.Identity, bool) {
	id, ok := middleware.GetIdentity(c)
	if !ok {
		h.HandleError(c, shared.ErrUnauthenticated)
		return identity.Identity{}, false
	}
	return id, true
}

// Success sends a 200 response with body
func (h *BaseHandler) Success(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}

// Created sends a 201 response with body
func (h *BaseHandler) Created(c *gin.Context, body any) {
	c.JSON(http.StatusCreated, body)
}

// NoContent sends a 204 response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// HandleError converts err to an error response
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	middleware.AbortWithError(c, err)
}

// ValidationError sends 422 invalid_request for a binding failure
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}
